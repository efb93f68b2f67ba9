package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs a once-daily maintenance sweep (expired magic tokens,
// stale draft storage) on a cron expression. The sweep itself is a
// collaborator; the scheduler host only owns the timing.
type Sweeper struct {
	schedule cron.Schedule
	sweep    func(ctx context.Context) error
	logger   *slog.Logger
}

func NewSweeper(cronExpr string, sweep func(ctx context.Context) error, logger *slog.Logger) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		schedule: schedule,
		sweep:    sweep,
		logger:   logger.With("component", "sweeper"),
	}, nil
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started")

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sweeper shut down")
			return
		case <-timer.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("maintenance sweep", "error", err)
			} else {
				s.logger.Info("maintenance sweep finished")
			}
		}
	}
}
