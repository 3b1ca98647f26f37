package scheduler

import (
	"time"

	"github.com/samson-media/barn/internal/errutils"
	"github.com/samson-media/barn/internal/job"
)

// runReaper runs the periodic cleanup sweep for as long as the scheduler
// is running.
func (s *Scheduler) runReaper() {
	defer s.pollWG.Done()

	ticker := time.NewTicker(s.cfg.Reaper.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			deleted, err := Reap(s.repo, s.cfg.Reaper, time.Now())
			if err != nil {
				logger.WarnF("reaper sweep reported errors: %v", err)
			}
			if deleted > 0 {
				logger.InfoF("reaper deleted %d job(s)", deleted)
			}
		}
	}
}

// Reap deletes every terminal job whose retention window has elapsed. A
// failure to delete one job does not abort the sweep; failures are
// accumulated and returned together.
func Reap(repo Repository, cfg ReaperConfig, now time.Time) (int, error) {
	all, err := repo.FindAll()
	if err != nil {
		return 0, err
	}

	errs := errutils.NewMultiErr(nil)
	deleted := 0
	for _, j := range all {
		if !shouldReap(j, cfg, now) {
			continue
		}
		if err := repo.Delete(j.ID); err != nil {
			errs.Add(err)
			continue
		}
		deleted++
	}

	if errs.HasErrors() {
		return deleted, errs
	}
	return deleted, nil
}

func shouldReap(j *job.Job, cfg ReaperConfig, now time.Time) bool {
	if !j.State.IsTerminal() || j.FinishedAt.IsZero() {
		return false
	}

	age := now.Sub(j.FinishedAt)

	switch j.State {
	case job.Succeeded, job.Canceled:
		return age > cfg.MaxAge
	case job.Failed, job.Killed:
		if !cfg.KeepFailedJobs {
			return age > cfg.MaxAge
		}
		return age > cfg.KeepFailedJobsFor
	default:
		return false
	}
}
