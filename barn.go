// Package barn embeds the job lifecycle engine (internal/jobrepo,
// internal/scheduler, internal/runner, internal/classify) behind the
// small surface an outer CLI, IPC transport, or OS service wrapper
// consumes: Create/Cancel/Kill/Describe/List/Clean/Status plus the
// Start/Stop/Reload service lifecycle. Service additionally exposes an
// internal/lifecycle Component view of itself (AsComponent) so barnd can
// register it with a lifecycle.ComponentManager alongside any other
// long-running subsystem.
package barn

import (
	"errors"
	"fmt"
	"time"

	"github.com/samson-media/barn/internal/barnfs"
	"github.com/samson-media/barn/internal/classify"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/jobrepo"
	"github.com/samson-media/barn/internal/l3"
	"github.com/samson-media/barn/internal/lifecycle"
	"github.com/samson-media/barn/internal/runner"
	"github.com/samson-media/barn/internal/scheduler"
)

var logger = l3.Get("barn")

// ErrAlreadyTerminal is returned by Cancel for a job already in a
// terminal state.
var ErrAlreadyTerminal = errors.New("barn: job already in a terminal state")

// ErrNotFound is re-exported so callers don't need to import jobrepo
// directly to match it with errors.Is.
var ErrNotFound = jobrepo.ErrNotFound

// Job is the caller-visible job snapshot type.
type Job = job.Job

// LoadLevel is re-exported for callers building a CreateRequest.
type LoadLevel = job.LoadLevel

// RetryPolicy is re-exported for callers building a CreateRequest.
type RetryPolicy = job.RetryPolicy

// Re-export the three load levels so callers don't need to import
// internal/job.
const (
	High   = job.High
	Medium = job.Medium
	Low    = job.Low
)

// CreateRequest is the input to Service.Create.
type CreateRequest struct {
	Command []string
	Tag     string
	// Level overrides classification when non-empty; an explicit
	// per-job override always wins over the classifier.
	Level  LoadLevel
	Policy RetryPolicy
}

// Config assembles everything Service needs to construct its engine.
type Config struct {
	BaseDir  string
	Limits   scheduler.Limits
	Recovery scheduler.RecoveryConfig
	Reaper   scheduler.ReaperConfig

	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	HeartbeatInterval time.Duration
}

// DefaultConfig returns a Config with every field at its spec default.
func DefaultConfig() Config {
	sc := scheduler.DefaultConfig()
	return Config{
		BaseDir:           barnfs.DefaultBaseDir(),
		Limits:            sc.Limits,
		Recovery:          sc.Recovery,
		Reaper:            sc.Reaper,
		PollInterval:      sc.PollInterval,
		ShutdownTimeout:   sc.ShutdownTimeout,
		HeartbeatInterval: 10 * time.Second,
	}
}

// Service is the embedding facade over the job lifecycle engine.
type Service struct {
	cfg        Config
	layout     *barnfs.Layout
	repo       *jobrepo.Repository
	classifier *classify.Classifier
	sched      *scheduler.Scheduler

	comp *lifecycle.SimpleComponent
}

// New constructs a Service over cfg without starting it.
func New(cfg Config) (*Service, error) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = barnfs.DefaultBaseDir()
	}
	layout := barnfs.NewLayout(cfg.BaseDir)

	classifier, err := classify.Load(layout.ClassifyDir())
	if err != nil {
		return nil, fmt.Errorf("barn: loading classifier rules: %w", err)
	}

	repo := jobrepo.New(jobrepo.Options{Layout: layout})
	rnr := runner.New(runner.Options{
		Layout:            layout,
		Repository:        repo,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	schedCfg := scheduler.Config{
		Limits:          cfg.Limits,
		PollInterval:    cfg.PollInterval,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Recovery:        cfg.Recovery,
		Reaper:          cfg.Reaper,
	}
	sched := scheduler.New(scheduler.Options{
		Layout:     layout,
		Repository: repo,
		Runner:     rnr,
		Config:     schedCfg,
	})

	svc := &Service{cfg: cfg, layout: layout, repo: repo, classifier: classifier, sched: sched}
	svc.comp = &lifecycle.SimpleComponent{
		CompId:    "barn",
		StartFunc: svc.Start,
		StopFunc:  func() error { return svc.Stop(true) },
	}
	return svc, nil
}

// Create generates, persists, and queues a new job, returning its initial
// snapshot.
func (s *Service) Create(req CreateRequest) (*job.Job, error) {
	level := req.Level
	if level == "" {
		level = s.classifier.Classify(req.Command)
	}
	policy := req.Policy
	if policy.RetryBackoffMultiplier == 0 {
		policy.RetryBackoffMultiplier = job.DefaultRetryPolicy().RetryBackoffMultiplier
	}

	j, err := s.repo.Create(req.Command, req.Tag, level, policy)
	if err != nil {
		return nil, err
	}
	s.sched.Wake()
	return j, nil
}

// Cancel transitions a QUEUED or RUNNING job to CANCELED. If the job is
// RUNNING, its process tree is also killed.
func (s *Service) Cancel(id string) error {
	j, err := s.repo.FindById(id)
	if err != nil {
		return err
	}
	if j.State.IsTerminal() {
		return ErrAlreadyTerminal
	}

	wasRunning := j.State == job.Running
	pid := j.Pid

	if err := s.repo.MarkCanceled(id); err != nil {
		return err
	}
	if wasRunning && pid != 0 {
		if err := runner.KillTree(pid, runner.KillGrace); err != nil {
			logger.WarnF("job %s: error killing process tree for pid %d: %v", id, pid, err)
		}
	}
	return nil
}

// Kill cancels a RUNNING job by terminating its process tree. For a
// QUEUED job it behaves exactly like Cancel.
func (s *Service) Kill(id string) error {
	return s.Cancel(id)
}

// Describe returns the latest durable snapshot of id.
func (s *Service) Describe(id string) (*job.Job, error) {
	return s.repo.FindById(id)
}

// List returns every job, optionally filtered by state.
func (s *Service) List(state job.State) ([]*job.Job, error) {
	if state == "" {
		return s.repo.FindAll()
	}
	return s.repo.FindByState(state)
}

// Clean runs the cleanup reaper once and returns the number of jobs deleted.
func (s *Service) Clean() (int, error) {
	return scheduler.Reap(s.repo, s.cfg.Reaper, time.Now())
}

// Status returns a snapshot of the scheduler's admission state.
func (s *Service) Status() (scheduler.Status, error) {
	return s.sched.Status()
}

// Start acquires the scheduler lock, runs crash recovery, and starts the
// poller and reaper.
func (s *Service) Start() error {
	return s.sched.Start()
}

// Stop stops the scheduler, gracefully by default.
func (s *Service) Stop(graceful bool) error {
	return s.sched.Stop(graceful)
}

// Reload re-reads the load-level classifier's whitelist files without
// restarting the scheduler or disturbing in-flight jobs — only jobs
// created afterwards are classified with the updated rules.
func (s *Service) Reload() error {
	classifier, err := classify.Load(s.layout.ClassifyDir())
	if err != nil {
		return fmt.Errorf("barn: reloading classifier rules: %w", err)
	}
	s.classifier = classifier
	return nil
}

// Id returns the id of s's lifecycle component view.
func (s *Service) Id() string { return s.comp.Id() }

// OnChange registers f on s's lifecycle component view.
func (s *Service) OnChange(f func(prevState, newState lifecycle.ComponentState)) {
	s.comp.OnChange(f)
}

// State returns the state of s's lifecycle component view.
func (s *Service) State() lifecycle.ComponentState { return s.comp.State() }

// AsComponent returns the lifecycle.Component view of s, for registration
// with a lifecycle.ComponentManager.
func (s *Service) AsComponent() lifecycle.Component { return s.comp }
