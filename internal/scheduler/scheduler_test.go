package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samson-media/barn/internal/barnfs"
	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/jobrepo"
	"github.com/samson-media/barn/internal/runner"
)

func testConfig() Config {
	return Config{
		Limits:          Limits{MaxHigh: 1, MaxMedium: 1, MaxLow: 1},
		PollInterval:    10 * time.Millisecond,
		ShutdownTimeout: time.Second,
		Recovery:        RecoveryConfig{StaleThreshold: 30 * time.Second},
		Reaper:          ReaperConfig{Enabled: false},
	}
}

func TestScheduler_StartTwiceFromDifferentInstances_SecondFailsLockContention(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)

	first := New(Options{Layout: layout, Repository: newFakeRepo(), Config: testConfig()})
	if err := first.Start(); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer func() { _ = first.Stop(false) }()

	second := New(Options{Layout: layout, Repository: newFakeRepo(), Config: testConfig()})
	err := second.Start()
	if err != ErrAlreadyRunning {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestScheduler_StopReleasesLockForNextInstance(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)

	first := New(Options{Layout: layout, Repository: newFakeRepo(), Config: testConfig()})
	if err := first.Start(); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := first.Stop(false); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	second := New(Options{Layout: layout, Repository: newFakeRepo(), Config: testConfig()})
	if err := second.Start(); err != nil {
		t.Fatalf("second Start() error = %v, want nil after first released its lock", err)
	}
	_ = second.Stop(false)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)
	s := New(Options{Layout: layout, Repository: newFakeRepo(), Config: testConfig()})
	if err := s.Stop(false); err != ErrNotRunning {
		t.Errorf("Stop() on unstarted scheduler error = %v, want ErrNotRunning", err)
	}
}

func TestScheduler_StatusReportsLimits(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)
	s := New(Options{Layout: layout, Repository: newFakeRepo(), Config: testConfig()})

	st, err := s.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Running {
		t.Error("Status().Running = true before Start")
	}
	if st.High.Limit != 1 || st.Medium.Limit != 1 || st.Low.Limit != 1 {
		t.Errorf("Status() limits = %+v, want 1/1/1", st)
	}
}

func TestLayoutLockPath(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)
	if got, want := layout.LockPath(), filepath.Join(dir, "scheduler.lock"); got != want {
		t.Errorf("LockPath() = %s, want %s", got, want)
	}
}

func waitForState(t *testing.T, repo *jobrepo.Repository, id string, want job.State, timeout time.Duration) *job.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		j, err := repo.FindById(id)
		if err != nil {
			t.Fatalf("FindById(%s) error = %v", id, err)
		}
		if j.State == want {
			return j
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s never reached state %s (last seen: %s)", id, want, j.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_StopGraceful_ForceTerminatesLongRunningJobOnTimeout(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)
	repo := jobrepo.New(jobrepo.Options{Layout: layout})
	rnr := runner.New(runner.Options{Layout: layout, Repository: repo, HeartbeatInterval: time.Hour})

	cfg := testConfig()
	cfg.ShutdownTimeout = 200 * time.Millisecond
	s := New(Options{Layout: layout, Repository: repo, Runner: rnr, Config: cfg})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	j, err := repo.Create([]string{"sleep", "30"}, "", job.Medium, job.DefaultRetryPolicy())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Wake()
	waitForState(t, repo, j.ID, job.Running, time.Second)

	stopStart := time.Now()
	if err := s.Stop(true); err != nil {
		t.Fatalf("Stop(true) error = %v", err)
	}
	if elapsed := time.Since(stopStart); elapsed > runner.KillGrace+2*time.Second {
		t.Errorf("graceful Stop() took %s, want it to return shortly after force-terminating the worker", elapsed)
	}

	found, err := repo.FindById(j.ID)
	if err != nil {
		t.Fatalf("FindById() error = %v", err)
	}
	if found.State != job.Failed {
		t.Errorf("job state after forced graceful shutdown = %s, want FAILED (killed by the shutdown timeout)", found.State)
	}
}

func TestScheduler_StopImmediate_ReturnsPromptlyLeavingJobRunning(t *testing.T) {
	dir := t.TempDir()
	layout := barnfs.NewLayout(dir)
	repo := jobrepo.New(jobrepo.Options{Layout: layout})
	rnr := runner.New(runner.Options{Layout: layout, Repository: repo, HeartbeatInterval: time.Hour})

	cfg := testConfig()
	cfg.ShutdownTimeout = time.Minute // should never matter: immediate stop does not wait on it
	s := New(Options{Layout: layout, Repository: repo, Runner: rnr, Config: cfg})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	j, err := repo.Create([]string{"sleep", "1"}, "", job.Medium, job.DefaultRetryPolicy())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Wake()
	waitForState(t, repo, j.ID, job.Running, time.Second)

	stopStart := time.Now()
	if err := s.Stop(false); err != nil {
		t.Fatalf("Stop(false) error = %v", err)
	}
	if elapsed := time.Since(stopStart); elapsed > 500*time.Millisecond {
		t.Errorf("immediate Stop() took %s, want it to return promptly without waiting on the worker", elapsed)
	}

	found, err := repo.FindById(j.ID)
	if err != nil {
		t.Fatalf("FindById() error = %v", err)
	}
	if found.State != job.Running {
		t.Errorf("job state right after immediate Stop() = %s, want RUNNING (left for next startup's crash recovery)", found.State)
	}

	// Let the still-running child exit on its own so the test doesn't leak a process.
	waitForState(t, repo, j.ID, job.Succeeded, 3*time.Second)
}
