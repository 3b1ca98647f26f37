package scheduler

import (
	"time"

	"github.com/samson-media/barn/internal/errutils"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/retry"
	"github.com/shirou/gopsutil/v4/process"
)

// RunRecovery reconciles every RUNNING job whose supervising process no
// longer exists. It runs once at startup before the poller starts. Each
// per-job failure is accumulated rather than aborting the sweep, mirroring
// the reaper's log-and-continue policy.
func RunRecovery(repo Repository, cfg RecoveryConfig, now time.Time) error {
	threshold := cfg.StaleThreshold
	if threshold <= 0 {
		threshold = 30 * time.Second
	}

	running, err := repo.FindByState(job.Running)
	if err != nil {
		return err
	}

	errs := errutils.NewMultiErr(nil)
	for _, j := range running {
		orphaned, reason := isOrphaned(j, now, threshold)
		if !orphaned {
			continue
		}
		if err := reconcile(repo, j, reason); err != nil {
			errs.Add(err)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// isOrphaned decides whether a RUNNING job's owning process has vanished:
// a fresh heartbeat means some predecessor may still own it (a safety net
// only — the lock guarantees single ownership), an absent pid is an
// immediate orphan, and a present pid is checked against the OS process
// table via gopsutil.
func isOrphaned(j *job.Job, now time.Time, staleThreshold time.Duration) (bool, string) {
	if !j.Heartbeat.IsZero() && now.Sub(j.Heartbeat) <= staleThreshold {
		return false, ""
	}
	if j.Pid == 0 {
		return true, "no pid recorded"
	}

	alive, err := process.PidExists(int32(j.Pid))
	if err != nil {
		logger.WarnF("job %s: could not query pid %d liveness: %v", j.ID, j.Pid, err)
		return false, ""
	}
	if alive {
		logger.WarnF("job %s: pid %d still alive with stale heartbeat, skipping (ambiguous)", j.ID, j.Pid)
		return false, ""
	}
	return true, "pid not found"
}

func reconcile(repo Repository, j *job.Job, reason string) error {
	logger.InfoF("job %s: marking orphaned (%s), owner daemon must have restarted", j.ID, reason)
	if err := repo.MarkKilled(j.ID, "Process killed — daemon restarted"); err != nil {
		return err
	}

	policy := j.Policy()
	if policy.MaxRetries <= 0 || j.RetryCount >= policy.MaxRetries {
		return nil
	}

	at := time.Now().Add(retry.Delay(policy, j.RetryCount))
	return repo.ScheduleRetry(j.ID, at, nil, "Process killed — daemon restarted")
}
