// Package jobrepo owns all mutation of job state, enforcing the central
// state machine and persisting every change through internal/statefile's
// atomic accessors. A single component owns all writes; readers always
// get a defensive copy, never a pointer into engine-owned state.
package jobrepo

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samson-media/barn/internal/barnfs"
	"github.com/samson-media/barn/internal/codec"
	"github.com/samson-media/barn/internal/idgen"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/l3"
	"github.com/samson-media/barn/internal/statefile"
)

var logger = l3.Get("jobrepo")

// Repository is the sole owner of job state mutation for one base
// directory's job tree.
type Repository struct {
	layout *barnfs.Layout
	locks  *keyedLock
	clock  func() time.Time
}

// Options configures a Repository.
type Options struct {
	Layout *barnfs.Layout
	// Clock is overridable for deterministic tests; defaults to time.Now.
	Clock func() time.Time
}

// New returns a Repository over layout.
func New(opts Options) *Repository {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Repository{
		layout: opts.Layout,
		locks:  newKeyedLock(),
		clock:  clock,
	}
}

// Create generates a new job id, writes its manifest, and persists its
// initial QUEUED state.
func (r *Repository) Create(command []string, tag string, level job.LoadLevel, policy job.RetryPolicy) (*job.Job, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: command must be non-empty", ErrConfigError)
	}
	if policy.RetryBackoffMultiplier != 0 && policy.RetryBackoffMultiplier < 1.0 {
		return nil, fmt.Errorf("%w: retryBackoffMultiplier must be >= 1.0", ErrConfigError)
	}
	if policy.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: maxRetries must be >= 0", ErrConfigError)
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: invalid load level %q", ErrConfigError, level)
	}

	id, err := idgen.NewJobID()
	if err != nil {
		return nil, err
	}

	now := r.clock().UTC()
	manifest := job.Manifest{
		ID:                     id,
		Command:                append([]string(nil), command...),
		Tag:                    tag,
		CreatedAt:              now,
		LoadLevel:              level,
		MaxRetries:             policy.MaxRetries,
		RetryDelaySeconds:       policy.RetryDelaySeconds,
		RetryBackoffMultiplier: policy.RetryBackoffMultiplier,
		RetryOnExitCodes:       policy.RetryOnExitCodes,
	}

	if err := r.layout.EnsureJobDirs(id); err != nil {
		return nil, err
	}

	c := codec.JSON()
	c.SetOption(codec.PrettyPrint, true)
	data, err := c.EncodeToBytes(manifest)
	if err != nil {
		return nil, err
	}
	if err := barnfs.WriteAtomic(r.layout.ManifestPath(id), data); err != nil {
		return nil, err
	}

	if err := statefile.WriteString(r.layout.StatePath(id), string(job.Queued)); err != nil {
		return nil, err
	}
	if err := statefile.WriteInt(r.layout.RetryCountPath(id), 0); err != nil {
		return nil, err
	}

	logger.InfoF("created job %s command=%v level=%s", id, command, level)
	return r.FindById(id)
}

// FindById reads the manifest and every state field for id, returning
// ErrNotFound if the job directory does not exist.
func (r *Repository) FindById(id string) (*job.Job, error) {
	data, ok, err := barnfs.ReadFile(r.layout.ManifestPath(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	var manifest job.Manifest
	if err := codec.JSON().DecodeBytes(data, &manifest); err != nil {
		return nil, fmt.Errorf("jobrepo: decoding manifest for %s: %w", id, err)
	}
	if manifest.ID != id {
		return nil, fmt.Errorf("jobrepo: manifest id mismatch for %s: got %s", id, manifest.ID)
	}

	j := &job.Job{Manifest: manifest}

	stateStr, ok, err := statefile.ReadString(r.layout.StatePath(id))
	if err != nil {
		return nil, err
	}
	if ok {
		j.State = job.State(stateStr)
	}

	if t, ok, err := statefile.ReadTime(r.layout.StartedAtPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.StartedAt = t
	}
	if t, ok, err := statefile.ReadTime(r.layout.FinishedAtPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.FinishedAt = t
	}
	if t, ok, err := statefile.ReadTime(r.layout.HeartbeatPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.Heartbeat = t
	}
	if t, ok, err := statefile.ReadTime(r.layout.RetryAtPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.RetryAt = t
	}
	if pid, ok, err := statefile.ReadInt64(r.layout.PidPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.Pid = pid
	}
	if n, ok, err := statefile.ReadInt(r.layout.RetryCountPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.RetryCount = n
	}
	if errStr, ok, err := statefile.ReadString(r.layout.ErrorPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.Error = errStr
	}

	if exitStr, ok, err := statefile.ReadString(r.layout.ExitCodePath(id)); err != nil {
		return nil, err
	} else if ok {
		if n, convErr := strconv.Atoi(exitStr); convErr == nil {
			j.ExitCode = &n
		} else {
			j.SymbolicExit = exitStr
		}
	}

	if lines, ok, err := readLines(r.layout.RetryHistoryPath(id)); err != nil {
		return nil, err
	} else if ok {
		j.RetryHistory = lines
	}

	return j, nil
}

func readLines(path string) ([]string, bool, error) {
	data, ok, err := barnfs.ReadFile(path)
	if err != nil || !ok {
		return nil, ok, err
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, true, nil
	}
	return strings.Split(text, "\n"), true, nil
}

// FindAll enumerates every job directory under jobs/, skipping (with a
// warning) any directory whose state can't be read.
func (r *Repository) FindAll() ([]*job.Job, error) {
	entries, err := os.ReadDir(r.layout.JobsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var jobs []*job.Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		j, err := r.FindById(entry.Name())
		if err != nil {
			logger.WarnF("skipping unreadable job %s: %v", entry.Name(), err)
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// FindByState returns every job currently in state s.
func (r *Repository) FindByState(s job.State) ([]*job.Job, error) {
	all, err := r.FindAll()
	if err != nil {
		return nil, err
	}
	var matched []*job.Job
	for _, j := range all {
		if j.State == s {
			matched = append(matched, j)
		}
	}
	sort.Slice(matched, func(i, k int) bool {
		if matched[i].CreatedAt.Equal(matched[k].CreatedAt) {
			return matched[i].ID < matched[k].ID
		}
		return matched[i].CreatedAt.Before(matched[k].CreatedAt)
	})
	return matched, nil
}

// Touch re-reads a job without mutating anything, forcing callers that
// poll Describe to see the latest durable state.
func (r *Repository) Touch(id string) (*job.Job, error) {
	return r.FindById(id)
}

// transition validates and writes a new state for id, holding the job's
// keyed lock for the whole read-validate-write critical section.
func (r *Repository) transition(id string, to job.State, mutate func() error) error {
	unlock := r.locks.lock(id)
	defer unlock()

	current, ok, err := statefile.ReadString(r.layout.StatePath(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	from := job.State(current)
	if !job.CanTransition(from, to) {
		return NewInvalidTransition(string(from), string(to))
	}

	if mutate != nil {
		if err := mutate(); err != nil {
			return err
		}
	}
	return statefile.WriteString(r.layout.StatePath(id), string(to))
}

// MarkStarted transitions id from QUEUED to RUNNING, recording pid and
// setting startedAt=heartbeat=now.
func (r *Repository) MarkStarted(id string, pid int64) error {
	now := r.clock().UTC()
	return r.transition(id, job.Running, func() error {
		if err := statefile.WriteTime(r.layout.StartedAtPath(id), now); err != nil {
			return err
		}
		if err := statefile.WriteTime(r.layout.HeartbeatPath(id), now); err != nil {
			return err
		}
		return statefile.WriteInt64(r.layout.PidPath(id), pid)
	})
}

// UpdateHeartbeat writes heartbeat=ts. It is a no-op if the job is not
// currently RUNNING.
func (r *Repository) UpdateHeartbeat(id string, ts time.Time) error {
	unlock := r.locks.lock(id)
	defer unlock()

	current, ok, err := statefile.ReadString(r.layout.StatePath(id))
	if err != nil {
		return err
	}
	if !ok || job.State(current) != job.Running {
		return nil
	}
	return statefile.WriteTime(r.layout.HeartbeatPath(id), ts.UTC())
}

// MarkCompleted transitions RUNNING to SUCCEEDED (exitCode==0) or FAILED
// (exitCode!=0), recording finishedAt, exitCode, and optionally error.
func (r *Repository) MarkCompleted(id string, exitCode int, errMsg string) error {
	now := r.clock().UTC()
	to := job.Succeeded
	if exitCode != 0 {
		to = job.Failed
	}
	return r.transition(id, to, func() error {
		if err := statefile.WriteTime(r.layout.FinishedAtPath(id), now); err != nil {
			return err
		}
		if err := statefile.WriteInt(r.layout.ExitCodePath(id), exitCode); err != nil {
			return err
		}
		if errMsg != "" {
			return statefile.WriteString(r.layout.ErrorPath(id), sanitize(errMsg))
		}
		return nil
	})
}

// MarkFailed transitions to FAILED with a symbolic (non-numeric) exit
// code, e.g. "start_failed" or "interrupted".
func (r *Repository) MarkFailed(id string, symbolic string, errMsg string) error {
	now := r.clock().UTC()
	return r.transition(id, job.Failed, func() error {
		if err := statefile.WriteTime(r.layout.FinishedAtPath(id), now); err != nil {
			return err
		}
		if err := statefile.WriteString(r.layout.ExitCodePath(id), symbolic); err != nil {
			return err
		}
		return statefile.WriteString(r.layout.ErrorPath(id), sanitize(errMsg))
	})
}

// MarkKilled transitions RUNNING to KILLED, used by crash recovery for a
// job whose owning process has vanished.
func (r *Repository) MarkKilled(id string, errMsg string) error {
	now := r.clock().UTC()
	return r.transition(id, job.Killed, func() error {
		if err := statefile.WriteTime(r.layout.FinishedAtPath(id), now); err != nil {
			return err
		}
		return statefile.WriteString(r.layout.ErrorPath(id), sanitize(errMsg))
	})
}

// MarkCanceled transitions QUEUED or RUNNING to CANCELED.
func (r *Repository) MarkCanceled(id string) error {
	now := r.clock().UTC()
	return r.transition(id, job.Canceled, func() error {
		return statefile.WriteTime(r.layout.FinishedAtPath(id), now)
	})
}

// ScheduleRetry appends a retry_history line for the attempt that just
// ended, increments retryCount, writes retryAt, clears startedAt,
// heartbeat, and finishedAt, and transitions the job (from FAILED or
// KILLED) back to QUEUED.
func (r *Repository) ScheduleRetry(id string, retryAt time.Time, lastExitCode *int, lastErr string) error {
	unlock := r.locks.lock(id)
	defer unlock()

	current, ok, err := statefile.ReadString(r.layout.StatePath(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	from := job.State(current)
	if !job.CanTransition(from, job.Queued) {
		return NewInvalidTransition(string(from), string(job.Queued))
	}

	retryCount, ok, err := statefile.ReadInt(r.layout.RetryCountPath(id))
	if err != nil {
		return err
	}
	if !ok {
		retryCount = 0
	}

	line := formatRetryHistoryLine(r.clock().UTC(), retryCount+1, lastExitCode, lastErr)
	if err := statefile.AppendLine(r.layout.RetryHistoryPath(id), line); err != nil {
		return err
	}
	if err := statefile.WriteInt(r.layout.RetryCountPath(id), retryCount+1); err != nil {
		return err
	}
	if err := statefile.WriteTime(r.layout.RetryAtPath(id), retryAt.UTC()); err != nil {
		return err
	}
	if err := statefile.Clear(r.layout.StartedAtPath(id)); err != nil {
		return err
	}
	if err := statefile.Clear(r.layout.HeartbeatPath(id)); err != nil {
		return err
	}
	if err := statefile.Clear(r.layout.FinishedAtPath(id)); err != nil {
		return err
	}
	return statefile.WriteString(r.layout.StatePath(id), string(job.Queued))
}

// Delete removes the job's directory recursively.
func (r *Repository) Delete(id string) error {
	return os.RemoveAll(r.layout.JobDir(id))
}

func formatRetryHistoryLine(now time.Time, attempt int, exitCode *int, errMsg string) string {
	exit := "none"
	if exitCode != nil {
		exit = strconv.Itoa(*exitCode)
	}
	return fmt.Sprintf("%s|attempt=%d|exit_code=%s|error=%s",
		now.Format(time.RFC3339Nano), attempt, exit, sanitize(errMsg))
}

// sanitize makes errMsg safe for the pipe-separated retry_history format:
// newlines become spaces, pipes become semicolons.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", ";")
	return s
}
