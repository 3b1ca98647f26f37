package scheduler

import (
	"testing"
	"time"

	"github.com/samson-media/barn/internal/job"
)

func TestRunRecovery_NoPidIsImmediatelyOrphaned(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["job-a"] = &job.Job{
		Manifest: job.Manifest{ID: "job-a"},
		State:    job.Running,
		Pid:      0,
	}

	if err := RunRecovery(repo, RecoveryConfig{StaleThreshold: 30 * time.Second}, time.Now()); err != nil {
		t.Fatalf("RunRecovery() error = %v", err)
	}
	if repo.jobs["job-a"].State != job.Killed {
		t.Errorf("state after RunRecovery = %s, want KILLED for a pid-less RUNNING job", repo.jobs["job-a"].State)
	}
}

func TestRunRecovery_FreshHeartbeatIsNotTouched(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["job-a"] = &job.Job{
		Manifest:  job.Manifest{ID: "job-a"},
		State:     job.Running,
		Pid:       99999999, // won't exist, but heartbeat is fresh so it's never checked
		Heartbeat: time.Now(),
	}

	if err := RunRecovery(repo, RecoveryConfig{StaleThreshold: 30 * time.Second}, time.Now()); err != nil {
		t.Fatalf("RunRecovery() error = %v", err)
	}
	if repo.jobs["job-a"].State != job.Running {
		t.Errorf("state after RunRecovery = %s, want RUNNING untouched (fresh heartbeat)", repo.jobs["job-a"].State)
	}
}

func TestRunRecovery_SchedulesRetryWhenPolicyAllows(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["job-a"] = &job.Job{
		Manifest: job.Manifest{
			ID:                     "job-a",
			MaxRetries:             3,
			RetryDelaySeconds:      1,
			RetryBackoffMultiplier: 2,
		},
		State:      job.Running,
		Pid:        0,
		RetryCount: 0,
	}

	if err := RunRecovery(repo, RecoveryConfig{StaleThreshold: 30 * time.Second}, time.Now()); err != nil {
		t.Fatalf("RunRecovery() error = %v", err)
	}
	if repo.jobs["job-a"].State != job.Queued {
		t.Errorf("state after RunRecovery = %s, want QUEUED (retry scheduled)", repo.jobs["job-a"].State)
	}
	if repo.jobs["job-a"].RetryCount != 1 {
		t.Errorf("RetryCount after RunRecovery = %d, want 1", repo.jobs["job-a"].RetryCount)
	}
}

func TestIsOrphaned_HeartbeatExactlyAtStaleThreshold_IsNotStale(t *testing.T) {
	now := time.Now()
	threshold := 30 * time.Second
	j := &job.Job{
		Manifest:  job.Manifest{ID: "job-a"},
		State:     job.Running,
		Pid:       99999999, // would fail a PidExists check if isOrphaned reached it
		Heartbeat: now.Add(-threshold),
	}

	orphaned, reason := isOrphaned(j, now, threshold)
	if orphaned {
		t.Errorf("isOrphaned() = (true, %q), want (false, \"\") for a heartbeat exactly staleThreshold old", reason)
	}
}

func TestIsOrphaned_HeartbeatOneNanosecondPastThreshold_IsStale(t *testing.T) {
	now := time.Now()
	threshold := 30 * time.Second
	j := &job.Job{
		Manifest:  job.Manifest{ID: "job-a"},
		State:     job.Running,
		Pid:       0,
		Heartbeat: now.Add(-threshold - time.Nanosecond),
	}

	orphaned, reason := isOrphaned(j, now, threshold)
	if !orphaned {
		t.Errorf("isOrphaned() = (false, %q), want (true, ...) for a heartbeat one nanosecond past staleThreshold", reason)
	}
}

func TestRunRecovery_NoRetryLeftStaysKilled(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["job-a"] = &job.Job{
		Manifest: job.Manifest{ID: "job-a", MaxRetries: 0},
		State:    job.Running,
		Pid:      0,
	}

	if err := RunRecovery(repo, RecoveryConfig{StaleThreshold: 30 * time.Second}, time.Now()); err != nil {
		t.Fatalf("RunRecovery() error = %v", err)
	}
	if repo.jobs["job-a"].State != job.Killed {
		t.Errorf("state after RunRecovery = %s, want KILLED (no retry budget)", repo.jobs["job-a"].State)
	}
}
