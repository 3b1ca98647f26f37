// Package runner supervises a single job's child process: it launches the
// command, streams its output to per-job log files, emits heartbeats on a
// timer independent of the child's exit, and reports the terminal outcome
// back through the repository — scheduling a retry when the policy calls
// for one.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/samson-media/barn/internal/barnfs"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/l3"
	"github.com/samson-media/barn/internal/retry"
)

var logger = l3.Get("runner")

// KillGrace is how long KillTree (and a canceled Run) waits after SIGTERM
// before escalating to SIGKILL.
const KillGrace = 5 * time.Second

// Repository is the subset of jobrepo.Repository the Runner depends on.
type Repository interface {
	MarkStarted(id string, pid int64) error
	UpdateHeartbeat(id string, ts time.Time) error
	MarkCompleted(id string, exitCode int, errMsg string) error
	MarkFailed(id string, symbolic string, errMsg string) error
	ScheduleRetry(id string, retryAt time.Time, lastExitCode *int, lastErr string) error
}

// Runner runs exactly one job to a persisted terminal or re-queued state.
type Runner struct {
	layout            *barnfs.Layout
	repo              Repository
	heartbeatInterval time.Duration
}

// Options configures a Runner.
type Options struct {
	Layout            *barnfs.Layout
	Repository        Repository
	HeartbeatInterval time.Duration
}

// New returns a Runner. HeartbeatInterval defaults to 10s.
func New(opts Options) *Runner {
	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Runner{layout: opts.Layout, repo: opts.Repository, heartbeatInterval: interval}
}

// Result is the outcome of running one job, for the scheduler's bookkeeping.
type Result struct {
	ID       string
	ExitCode int
	Retried  bool
}

// Run executes j's command to completion: launches the child with its
// working directory and log redirection set up, reports the PID, emits
// heartbeats while it runs, then marks the terminal outcome (or schedules
// a retry) through the repository. If ctx is canceled before the child
// exits on its own, Run kills the child's process tree (SIGTERM, then
// SIGKILL after KillGrace) and waits for that kill to take effect before
// returning, so callers can rely on Run returning once ctx is canceled.
func (r *Runner) Run(ctx context.Context, j *job.Job) (*Result, error) {
	id := j.ID

	stdout, err := os.OpenFile(r.layout.StdoutLogPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runner: opening stdout log for %s: %w", id, err)
	}
	defer func() { _ = stdout.Close() }()

	stderr, err := os.OpenFile(r.layout.StderrLogPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runner: opening stderr log for %s: %w", id, err)
	}
	defer func() { _ = stderr.Close() }()

	cmd := exec.Command(j.Command[0], j.Command[1:]...)
	cmd.Dir = r.layout.WorkDir(id)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		msg := fmt.Sprintf("failed to start command: %v", err)
		_, _ = stderr.WriteString(msg + "\n")
		if markErr := r.repo.MarkFailed(id, "start_failed", msg); markErr != nil {
			logger.ErrorF("job %s: failed to mark start failure: %v", id, markErr)
		}
		return nil, fmt.Errorf("runner: %s", msg)
	}

	pid := int64(cmd.Process.Pid)
	if err := r.repo.MarkStarted(id, pid); err != nil {
		logger.ErrorF("job %s: failed to mark started: %v", id, err)
	}
	logger.InfoF("job %s started pid=%d", id, pid)

	stopHeartbeat := make(chan struct{})
	heartbeatDone := make(chan struct{})
	go r.heartbeatLoop(id, stopHeartbeat, heartbeatDone)

	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitErrCh:
	case <-ctx.Done():
		logger.WarnF("job %s: context canceled, killing process tree (pid=%d)", id, pid)
		if err := KillTree(pid, KillGrace); err != nil {
			logger.WarnF("job %s: error killing process tree for pid %d: %v", id, pid, err)
		}
		waitErr = <-waitErrCh
	}

	close(stopHeartbeat)
	<-heartbeatDone

	exitCode, signaled := exitCodeOf(waitErr)
	return r.finish(j, exitCode, signaled, waitErr)
}

func (r *Runner) heartbeatLoop(id string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := r.repo.UpdateHeartbeat(id, now); err != nil {
				logger.WarnF("job %s: heartbeat update failed: %v", id, err)
			}
		}
	}
}

func (r *Runner) finish(j *job.Job, exitCode int, signaled bool, waitErr error) (*Result, error) {
	id := j.ID

	if waitErr == nil && exitCode == 0 {
		if err := r.repo.MarkCompleted(id, 0, ""); err != nil {
			return nil, err
		}
		logger.InfoF("job %s succeeded", id)
		return &Result{ID: id, ExitCode: 0}, nil
	}

	j.ExitCode = nil
	if !signaled {
		ec := exitCode
		j.ExitCode = &ec
	}

	if !signaled && retry.ShouldRetry(j) {
		at := retry.RetryAt(j, time.Now())
		errMsg := fmt.Sprintf("process exited with code %d", exitCode)
		if err := r.repo.ScheduleRetry(id, at, j.ExitCode, errMsg); err != nil {
			return nil, err
		}
		logger.InfoF("job %s scheduled for retry at %s", id, at)
		return &Result{ID: id, ExitCode: exitCode, Retried: true}, nil
	}

	if signaled {
		errMsg := fmt.Sprintf("process killed by signal: %v", waitErr)
		if err := r.repo.MarkFailed(id, "signaled", errMsg); err != nil {
			return nil, err
		}
		logger.InfoF("job %s failed: %s", id, errMsg)
		return &Result{ID: id, ExitCode: exitCode}, nil
	}

	errMsg := fmt.Sprintf("process exited with code %d", exitCode)
	if err := r.repo.MarkCompleted(id, exitCode, errMsg); err != nil {
		return nil, err
	}
	logger.InfoF("job %s failed: %s", id, errMsg)
	return &Result{ID: id, ExitCode: exitCode}, nil
}
