package app

import (
	"context"
	"log/slog"
	"time"
)

// SweepResult summarizes one pending-charge reconciliation pass.
type SweepResult struct {
	Evaluated int `json:"evaluated"`
	Changed   int `json:"changed"`
	Failed    int `json:"failed"`
}

// ReconcilePendingDonations re-checks pending donations whose charge is older than
// minAge. Each donation goes through ReconcileDonation; a failure on one does not
// stop the pass.
func (s *Service) ReconcilePendingDonations(ctx context.Context, minAge time.Duration, batchSize int) (SweepResult, error) {
	var result SweepResult
	if batchSize <= 0 {
		batchSize = 50
	}

	cutoff := s.now().Add(-minAge)
	donations, err := s.repo.ListPendingChargedDonations(ctx, cutoff, batchSize)
	if err != nil {
		return result, err
	}

	for _, d := range donations {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Evaluated++

		outcome, err := s.ReconcileDonation(ctx, d.ID)
		if err != nil {
			result.Failed++
			s.logger.Warn("pending donation reconcile failed", "donation_id", d.ID, "error", err)
			continue
		}
		if outcome.Changed {
			result.Changed++
		}
	}
	return result, nil
}

// PendingReconciler is the operation the sweep job drives.
type PendingReconciler interface {
	ReconcilePendingDonations(ctx context.Context, minAge time.Duration, batchSize int) (SweepResult, error)
}

// Jobs contains the logic for scheduled tasks.
type Jobs struct {
	reconciler PendingReconciler
	logger     *slog.Logger
	minAge     time.Duration
	batchSize  int
	timeout    time.Duration
}

// NewJobs creates a new Jobs runner. timeout bounds one full sweep.
func NewJobs(reconciler PendingReconciler, logger *slog.Logger, minAge time.Duration, batchSize int, timeout time.Duration) *Jobs {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Jobs{
		reconciler: reconciler,
		logger:     logger,
		minAge:     minAge,
		batchSize:  batchSize,
		timeout:    timeout,
	}
}

// ReconcilePendingCharges is the cron entry for the pending-charge sweep.
func (j *Jobs) ReconcilePendingCharges() {
	j.logger.Info("starting pending charge reconciliation job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.reconciler.ReconcilePendingDonations(ctx, j.minAge, j.batchSize)
	if err != nil {
		j.logger.Error("pending charge reconciliation failed", "error", err, "evaluated", result.Evaluated)
		return
	}

	j.logger.Info("pending charge reconciliation job finished",
		"evaluated", result.Evaluated,
		"changed", result.Changed,
		"failed", result.Failed,
	)
}
