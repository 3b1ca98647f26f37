package scheduler

import "time"

// Limits bounds how many jobs of each load level may run concurrently.
type Limits struct {
	MaxHigh   int
	MaxMedium int
	MaxLow    int
}

// DefaultLimits returns the spec's default per-level caps: 2/8/32.
func DefaultLimits() Limits {
	return Limits{MaxHigh: 2, MaxMedium: 8, MaxLow: 32}
}

// Total returns the sum of every level's limit — the worker pool size.
func (l Limits) Total() int {
	return l.MaxHigh + l.MaxMedium + l.MaxLow
}

// RecoveryConfig configures the startup crash-recovery sweep.
type RecoveryConfig struct {
	// StaleThreshold is how old a RUNNING job's heartbeat must be before
	// it's considered a candidate orphan. Default 30s.
	StaleThreshold time.Duration
}

// ReaperConfig configures the periodic cleanup of old terminal jobs.
type ReaperConfig struct {
	Enabled bool
	// Interval between reaper sweeps. Default 60 minutes.
	Interval time.Duration
	// MaxAge is the retention window for SUCCEEDED/CANCELED jobs. Default 72h.
	MaxAge time.Duration
	// KeepFailedJobs, if true, retains FAILED/KILLED jobs past MaxAge up
	// to KeepFailedJobsFor. Default true.
	KeepFailedJobs bool
	// KeepFailedJobsFor is the retention window for FAILED/KILLED jobs
	// when KeepFailedJobs is true. Default 168h.
	KeepFailedJobsFor time.Duration
}

// DefaultReaperConfig returns the spec's defaults: enabled, hourly sweeps,
// 72h/168h retention.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Enabled:           true,
		Interval:          60 * time.Minute,
		MaxAge:            72 * time.Hour,
		KeepFailedJobs:    true,
		KeepFailedJobsFor: 168 * time.Hour,
	}
}

// Config assembles every tunable the Scheduler needs.
type Config struct {
	Limits          Limits
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	Recovery        RecoveryConfig
	Reaper          ReaperConfig
}

// DefaultConfig returns the spec's defaults: 1s poll interval, 5 minute
// graceful shutdown timeout, 30s stale heartbeat threshold, default reaper.
func DefaultConfig() Config {
	return Config{
		Limits:          DefaultLimits(),
		PollInterval:    time.Second,
		ShutdownTimeout: 5 * time.Minute,
		Recovery:        RecoveryConfig{StaleThreshold: 30 * time.Second},
		Reaper:          DefaultReaperConfig(),
	}
}
