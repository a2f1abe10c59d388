/**
 * @description
 * Cron scheduler for background jobs.
 */
package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron              *cron.Cron
	jobs              *Jobs
	logger            *slog.Logger
	reconcileSchedule string
}

// NewScheduler creates a new scheduler instance. An empty schedule disables the sweep.
func NewScheduler(jobs *Jobs, logger *slog.Logger, reconcileSchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:              c,
		jobs:              jobs,
		logger:            logger,
		reconcileSchedule: strings.TrimSpace(reconcileSchedule),
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if s.reconcileSchedule == "" {
		s.logger.Info("pending charge reconciliation job disabled")
	} else if _, err := s.cron.AddFunc(s.reconcileSchedule, s.jobs.ReconcilePendingCharges); err != nil {
		s.logger.Error("failed to schedule pending charge reconciliation job", "error", err)
	} else {
		s.logger.Info("scheduled pending charge reconciliation job", "schedule", s.reconcileSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
