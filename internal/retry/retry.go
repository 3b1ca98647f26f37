// Package retry implements the pure functions that decide whether a
// finished job should be retried and when its next attempt is due.
package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/samson-media/barn/internal/job"
)

// maxDelay is the hard ceiling applied to every computed delay, regardless
// of how large the backoff formula grows.
const maxDelay = 3600 * time.Second

const (
	jitterMin = 0.8
	jitterMax = 1.2
)

// ShouldRetry reports whether j should be retried, given its policy and
// its most recent exit code: maxRetries must be positive, retryCount must
// still be below it, an exit code must be defined and non-zero, and if
// retryOnExitCodes is non-empty the exit code must appear in it. A job
// killed by signal (no exit code recorded) is never retryable.
func ShouldRetry(j *job.Job) bool {
	policy := j.Policy()
	if policy.MaxRetries <= 0 {
		return false
	}
	if j.RetryCount >= policy.MaxRetries {
		return false
	}
	if j.ExitCode == nil {
		return false
	}
	code := *j.ExitCode
	if code == 0 {
		return false
	}
	if len(policy.RetryOnExitCodes) == 0 {
		return true
	}
	for _, c := range policy.RetryOnExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Delay computes the jittered backoff delay for the given retry attempt
// number (0-indexed), per policy: base × multiplier^retryCount, scaled by
// a uniform jitter factor in [0.8, 1.2], clamped to a 3600s ceiling.
func Delay(policy job.RetryPolicy, retryCount int) time.Duration {
	base := DelayDeterministic(policy, retryCount)
	jitter := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	jittered := time.Duration(float64(base) * jitter)
	return clamp(jittered)
}

// DelayDeterministic computes the same backoff as Delay but without
// jitter, for reproducible tests.
func DelayDeterministic(policy job.RetryPolicy, retryCount int) time.Duration {
	multiplier := policy.RetryBackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	seconds := float64(policy.RetryDelaySeconds) * math.Pow(multiplier, float64(retryCount))
	return clamp(time.Duration(seconds * float64(time.Second)))
}

func clamp(d time.Duration) time.Duration {
	if d > maxDelay {
		return maxDelay
	}
	if d < 0 {
		return 0
	}
	return d
}

// RetryAt returns the instant a retried job should next become eligible
// for dispatch: now plus the jittered delay for its current retry count.
func RetryAt(j *job.Job, now time.Time) time.Time {
	return now.Add(Delay(j.Policy(), j.RetryCount))
}
