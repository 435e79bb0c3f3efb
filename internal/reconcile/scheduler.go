// Package reconcile periodically polls the gateway for payments whose
// callback never arrived.
package reconcile

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"momo-gateway/internal/models"
	"momo-gateway/pkg/logger"
)

type Reconciler interface {
	ReconcilePending(ctx context.Context) (*models.ReconcileSummary, error)
}

type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	schedule   string
	timeout    time.Duration
	logger     *logger.Logger
}

func NewScheduler(reconciler Reconciler, schedule string, timeout time.Duration, log *logger.Logger) *Scheduler {
	log = log.WithComponent("reconciler")
	cronLogger := cron.PrintfLogger(log)
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		schedule:   schedule,
		timeout:    timeout,
		logger:     log,
	}
}

// Start registers the reconcile job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Run); err != nil {
		s.logger.WithError(err).Error("failed to schedule reconcile job")
		return err
	}
	s.logger.WithField("schedule", s.schedule).Info("scheduled reconcile job")

	s.cron.Start()
	return nil
}

// Run performs one reconcile pass.
func (s *Scheduler) Run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.reconciler.ReconcilePending(ctx); err != nil {
		s.logger.WithError(err).Warn("reconcile pass failed")
	}
}

// Stop stops the scheduler; the returned context is done once a running pass
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
