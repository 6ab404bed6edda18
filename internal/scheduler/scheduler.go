package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/upfeed/internal/poller"
)

// Cycler runs one poll cycle.
type Cycler interface {
	Poll(ctx context.Context) (poller.CycleStats, error)
}

// Scheduler owns the main loop: ticks on an interval and runs one cycle per
// tick. Cycles run in the scheduler goroutine, so they never overlap.
type Scheduler struct {
	cycler   Cycler
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that polls at the given interval.
func NewScheduler(cycler Cycler, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycler:   cycler,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the polling loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := s.cycler.Poll(ctx)
	switch {
	case errors.Is(err, poller.ErrCycleBusy):
		s.logger.Warn("skipping tick, previous cycle still running")
	case err != nil:
		s.logger.Error("poll cycle failed", "error", err)
	}
}
