// Package scheduler is the single-writer loop that admits queued jobs
// against per-load-level limits and dispatches them to a Runner, and hosts
// the startup crash-recovery sweep and the periodic cleanup reaper. The
// main loop combines a ticker, which polls the filesystem (the shared
// medium another process may have mutated) on a fixed cadence, with a
// wake channel that lets a local Create call force an earlier poll
// instead of waiting out the tick.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samson-media/barn/internal/barnfs"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/l3"
	"github.com/samson-media/barn/internal/runner"
)

var logger = l3.Get("scheduler")

// ErrAlreadyRunning is returned by Start when another process already
// holds the scheduler lock for this base directory.
var ErrAlreadyRunning = errors.New("scheduler: already running (lock held by another process)")

// ErrNotRunning is returned by Stop on a scheduler that was never started.
var ErrNotRunning = errors.New("scheduler: not running")

// Repository is the subset of jobrepo.Repository the scheduler depends on.
type Repository interface {
	FindByState(s job.State) ([]*job.Job, error)
	FindAll() ([]*job.Job, error)
	FindById(id string) (*job.Job, error)
	MarkKilled(id string, errMsg string) error
	ScheduleRetry(id string, retryAt time.Time, lastExitCode *int, lastErr string) error
	Delete(id string) error
}

// Scheduler admits and dispatches queued jobs for one base directory.
type Scheduler struct {
	layout *barnfs.Layout
	repo   Repository
	runner *runner.Runner
	cfg    Config

	lock *barnfs.Lock
	// instanceID identifies this scheduler instance in logs and in the
	// "<lock path>.owner" file written beside the lock, distinguishing
	// successive daemon restarts from one another when diagnosing a stuck
	// lock.
	instanceID string

	mu      sync.Mutex
	running bool

	// ctx/cancel govern the poller and reaper loops: canceling it stops
	// admission of new work. pollWG tracks those two goroutines.
	ctx    context.Context
	cancel context.CancelFunc
	pollWG sync.WaitGroup

	// workerCtx/cancelWorkers are passed into each in-flight Runner.Run
	// call; canceling it force-kills every running job's process tree.
	// workerWG tracks one entry per dispatched job.
	workerCtx     context.Context
	cancelWorkers context.CancelFunc
	workerWG      sync.WaitGroup

	wake chan struct{}

	workerSem chan struct{}

	countHigh   int32
	countMedium int32
	countLow    int32
}

// Options configures a new Scheduler.
type Options struct {
	Layout     *barnfs.Layout
	Repository Repository
	Runner     *runner.Runner
	Config     Config
}

// New returns a Scheduler, not yet started.
func New(opts Options) *Scheduler {
	cfg := opts.Config
	if cfg.PollInterval <= 0 {
		cfg = DefaultConfig()
	}
	return &Scheduler{
		layout:     opts.Layout,
		repo:       opts.Repository,
		runner:     opts.Runner,
		cfg:        cfg,
		lock:       barnfs.NewLock(opts.Layout.LockPath()),
		instanceID: uuid.New().String(),
		wake:       make(chan struct{}, 1),
	}
}

// Start acquires the scheduler lock, runs crash recovery to completion,
// starts the cleanup reaper, and starts the poller.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRunning
	}
	if err := barnfs.WriteAtomic(s.lock.Path()+".owner", []byte(s.instanceID)); err != nil {
		logger.WarnF("instance %s: could not record lock owner id: %v", s.instanceID, err)
	}

	if err := RunRecovery(s.repo, s.cfg.Recovery, time.Now()); err != nil {
		logger.ErrorF("crash recovery reported errors: %v", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.workerCtx, s.cancelWorkers = context.WithCancel(context.Background())
	s.running = true
	s.workerSem = make(chan struct{}, s.cfg.Limits.Total())

	if s.cfg.Reaper.Enabled {
		s.pollWG.Add(1)
		go s.runReaper()
	}

	s.pollWG.Add(1)
	go s.run()

	logger.InfoF("scheduler instance %s started limits=%+v pollInterval=%s", s.instanceID, s.cfg.Limits, s.cfg.PollInterval)
	return nil
}

// Stop stops the poller and reaper, then disposes of in-flight workers
// according to graceful. A graceful stop waits up to ShutdownTimeout for
// running jobs to finish on their own before force-terminating them (and
// their process trees) once the timeout elapses. An immediate
// (non-graceful) stop neither cancels nor waits for in-flight workers and
// returns once the poller and reaper have exited: running jobs are left
// RUNNING, to be reconciled by the next startup's crash recovery.
func (s *Scheduler) Stop(graceful bool) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.pollWG.Wait()

	if graceful {
		done := make(chan struct{})
		go func() {
			s.workerWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(s.cfg.ShutdownTimeout):
			logger.WarnF("graceful shutdown timed out after %s, force-terminating workers", s.cfg.ShutdownTimeout)
			s.cancelWorkers()
			<-done
		}
	}

	if err := s.lock.Unlock(); err != nil {
		logger.WarnF("error releasing scheduler lock: %v", err)
	}
	logger.InfoF("scheduler instance %s stopped", s.instanceID)
	return nil
}

// Wake signals the poller to re-check queued jobs immediately rather than
// waiting for the next tick — called by the embedding facade right after
// Create so a newly queued job doesn't wait a full poll interval.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer s.pollWG.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		case <-s.wake:
			s.tick()
		}
	}
}

// tick runs one selection-and-dispatch pass: it reads the queued set,
// discards not-yet-due retries and saturated levels, picks the single
// oldest eligible job, and submits it to the worker pool.
func (s *Scheduler) tick() {
	queued, err := s.repo.FindByState(job.Queued)
	if err != nil {
		logger.ErrorF("tick: failed to list queued jobs: %v", err)
		return
	}
	if len(queued) == 0 {
		return
	}

	now := time.Now()
	var eligible []*job.Job
	for _, j := range queued {
		if !j.RetryAt.IsZero() && j.RetryAt.After(now) {
			continue
		}
		if s.atCapacity(j.LoadLevel) {
			continue
		}
		eligible = append(eligible, j)
	}
	if len(eligible) == 0 {
		return
	}

	sort.Slice(eligible, func(i, k int) bool {
		if eligible[i].CreatedAt.Equal(eligible[k].CreatedAt) {
			return eligible[i].ID < eligible[k].ID
		}
		return eligible[i].CreatedAt.Before(eligible[k].CreatedAt)
	})

	next := eligible[0]
	s.incr(next.LoadLevel)

	select {
	case s.workerSem <- struct{}{}:
	default:
		// Worker pool saturated; release the reservation and retry next tick.
		s.decr(next.LoadLevel)
		return
	}

	s.workerWG.Add(1)
	go s.dispatch(next)
}

func (s *Scheduler) dispatch(j *job.Job) {
	defer s.workerWG.Done()
	defer func() { <-s.workerSem }()
	defer s.decr(j.LoadLevel)

	if _, err := s.runner.Run(s.workerCtx, j); err != nil {
		logger.ErrorF("job %s: runner error: %v", j.ID, err)
	}
}

func (s *Scheduler) levelCounter(level job.LoadLevel) *int32 {
	switch level {
	case job.High:
		return &s.countHigh
	case job.Low:
		return &s.countLow
	default:
		return &s.countMedium
	}
}

func (s *Scheduler) limitFor(level job.LoadLevel) int32 {
	switch level {
	case job.High:
		return int32(s.cfg.Limits.MaxHigh)
	case job.Low:
		return int32(s.cfg.Limits.MaxLow)
	default:
		return int32(s.cfg.Limits.MaxMedium)
	}
}

func (s *Scheduler) atCapacity(level job.LoadLevel) bool {
	return atomic.LoadInt32(s.levelCounter(level)) >= s.limitFor(level)
}

func (s *Scheduler) incr(level job.LoadLevel) {
	atomic.AddInt32(s.levelCounter(level), 1)
}

func (s *Scheduler) decr(level job.LoadLevel) {
	atomic.AddInt32(s.levelCounter(level), -1)
}
