package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/samson-media/barn/internal/job"
)

type fakeRepo struct {
	jobs    map[string]*job.Job
	deleted []string
	failIDs map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[string]*job.Job{}}
}

func (f *fakeRepo) FindByState(s job.State) ([]*job.Job, error) {
	var out []*job.Job
	for _, j := range f.jobs {
		if j.State == s {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindAll() ([]*job.Job, error) {
	var out []*job.Job
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeRepo) FindById(id string) (*job.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return j, nil
}

func (f *fakeRepo) MarkKilled(id string, errMsg string) error {
	j, ok := f.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	j.State = job.Killed
	j.Error = errMsg
	return nil
}

func (f *fakeRepo) ScheduleRetry(id string, retryAt time.Time, lastExitCode *int, lastErr string) error {
	j, ok := f.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	j.State = job.Queued
	j.RetryAt = retryAt
	j.RetryCount++
	return nil
}

func (f *fakeRepo) Delete(id string) error {
	if f.failIDs[id] {
		return errors.New("boom")
	}
	f.deleted = append(f.deleted, id)
	delete(f.jobs, id)
	return nil
}

func TestReap_NeverDeletesQueuedOrRunning(t *testing.T) {
	repo := newFakeRepo()
	repo.jobs["job-a"] = &job.Job{Manifest: job.Manifest{ID: "job-a"}, State: job.Queued}
	repo.jobs["job-b"] = &job.Job{Manifest: job.Manifest{ID: "job-b"}, State: job.Running}

	cfg := DefaultReaperConfig()
	deleted, err := Reap(repo, cfg, time.Now())
	if err != nil {
		t.Fatalf("Reap() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Reap() deleted = %d, want 0", deleted)
	}
}

func TestReap_DeletesSucceededPastMaxAge(t *testing.T) {
	repo := newFakeRepo()
	old := time.Now().Add(-73 * time.Hour)
	repo.jobs["job-a"] = &job.Job{Manifest: job.Manifest{ID: "job-a"}, State: job.Succeeded, FinishedAt: old}
	repo.jobs["job-b"] = &job.Job{Manifest: job.Manifest{ID: "job-b"}, State: job.Succeeded, FinishedAt: time.Now()}

	cfg := DefaultReaperConfig()
	deleted, err := Reap(repo, cfg, time.Now())
	if err != nil {
		t.Fatalf("Reap() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("Reap() deleted = %d, want 1", deleted)
	}
	if _, ok := repo.jobs["job-a"]; ok {
		t.Error("job-a should have been reaped")
	}
	if _, ok := repo.jobs["job-b"]; !ok {
		t.Error("job-b (within retention) should not have been reaped")
	}
}

func TestReap_KeepsFailedJobsLongerWhenConfigured(t *testing.T) {
	repo := newFakeRepo()
	age := time.Now().Add(-100 * time.Hour) // past MaxAge (72h) but within KeepFailedJobsFor (168h)
	repo.jobs["job-a"] = &job.Job{Manifest: job.Manifest{ID: "job-a"}, State: job.Failed, FinishedAt: age}

	cfg := DefaultReaperConfig()
	deleted, err := Reap(repo, cfg, time.Now())
	if err != nil {
		t.Fatalf("Reap() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Reap() deleted = %d, want 0 (FAILED job within KeepFailedJobsFor)", deleted)
	}

	cfg.KeepFailedJobs = false
	deleted, err = Reap(repo, cfg, time.Now())
	if err != nil {
		t.Fatalf("Reap() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Reap() deleted = %d, want 1 once KeepFailedJobs is disabled", deleted)
	}
}

func TestReap_AccumulatesPerJobFailures(t *testing.T) {
	repo := newFakeRepo()
	old := time.Now().Add(-100 * time.Hour)
	repo.jobs["job-a"] = &job.Job{Manifest: job.Manifest{ID: "job-a"}, State: job.Succeeded, FinishedAt: old}
	repo.jobs["job-b"] = &job.Job{Manifest: job.Manifest{ID: "job-b"}, State: job.Succeeded, FinishedAt: old}
	repo.failIDs = map[string]bool{"job-a": true}

	cfg := DefaultReaperConfig()
	deleted, err := Reap(repo, cfg, time.Now())
	if err == nil {
		t.Fatal("Reap() error = nil, want an accumulated error for the failing delete")
	}
	if deleted != 1 {
		t.Errorf("Reap() deleted = %d, want 1 (job-b still deleted despite job-a's failure)", deleted)
	}
}
