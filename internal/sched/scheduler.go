// Package sched provides the time-based trigger that starts one reminder
// sweep per day.
package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ngocvh/licensewatch/internal/dispatch"
)

// DefaultSchedule runs the sweep daily at 01:00.
const DefaultSchedule = "0 1 * * *"

// sweepTimeout bounds a single scheduled sweep. Sweeps are expected to
// finish in minutes; a day-long hang must not leak into the next trigger.
const sweepTimeout = 1 * time.Hour

// SweepRunner is the dispatcher capability the scheduler drives.
type SweepRunner interface {
	RunSweep(ctx context.Context) (*dispatch.SweepResult, error)
}

// Scheduler triggers sweeps on a cron schedule. It only logs outcomes;
// a failed sweep waits for the next tick, with no retry in between.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler invoking the runner on the given cron spec.
func New(runner SweepRunner, spec string, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		result, err := runner.RunSweep(ctx)
		if err != nil {
			logger.Error("scheduled sweep failed", zap.Error(err))
			return
		}

		logger.Info("scheduled sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("success", result.Success),
			zap.Int("failed", result.Failed),
		)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("reminder scheduler configured", zap.String("schedule", spec))

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins triggering sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the trigger and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}
