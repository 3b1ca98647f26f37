package scheduler

import (
	"sync/atomic"

	"github.com/samson-media/barn/internal/job"
)

// LevelStatus reports one load level's current occupancy against its limit.
type LevelStatus struct {
	Running int
	Limit   int
}

// Status is a point-in-time snapshot of the scheduler's admission state.
type Status struct {
	Running     bool
	High        LevelStatus
	Medium      LevelStatus
	Low         LevelStatus
	QueuedTotal int
}

// Status returns a snapshot of per-level running counts and limits, the
// total queued count, and whether the poller is currently running.
func (s *Scheduler) Status() (Status, error) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	queued, err := s.repo.FindByState(job.Queued)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Running: running,
		High: LevelStatus{
			Running: int(atomic.LoadInt32(&s.countHigh)),
			Limit:   s.cfg.Limits.MaxHigh,
		},
		Medium: LevelStatus{
			Running: int(atomic.LoadInt32(&s.countMedium)),
			Limit:   s.cfg.Limits.MaxMedium,
		},
		Low: LevelStatus{
			Running: int(atomic.LoadInt32(&s.countLow)),
			Limit:   s.cfg.Limits.MaxLow,
		},
		QueuedTotal: len(queued),
	}, nil
}
