package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/google/uuid"
)

// MapGatewayStatus translates a gateway charge status into a donation status.
func MapGatewayStatus(status string) domain.DonationStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED", "RECEIVED", "RECEIVED_IN_CASH":
		return domain.DonationPaid
	case "REFUNDED":
		return domain.DonationCancelled
	}
	// PENDING, OVERDUE, CHARGEBACK_*, DUNNING_*, AWAITING_* and anything unknown.
	return domain.DonationPending
}

// transitionDonation moves a donation to status `to` with a compare-and-set. The
// store re-derives the project ledger in the same transaction when money enters or
// leaves the paid set, so a failed call leaves nothing half applied and can be retried.
// It reports false when the stored status already equals `to` or another writer
// changed it first.
func (s *Service) transitionDonation(ctx context.Context, donation *domain.Donation, to domain.DonationStatus, source string) (bool, error) {
	from := donation.Status
	if from == to {
		return false, nil
	}

	change, err := s.donationWrite(donation.ID, func() (*domain.DonationChange, error) {
		return s.repo.TransitionDonationStatus(ctx, donation.ID, from, to, CurrentAmount)
	})
	if err != nil {
		return false, fmt.Errorf("failed to transition donation status: %w", err)
	}
	if change == nil {
		s.logger.Info("donation status already changed by another writer",
			"donation_id", donation.ID, "from", from, "to", to, "source", source)
		return false, nil
	}
	*donation = *change.After

	s.logger.Info("donation status changed",
		"donation_id", donation.ID,
		"project_id", donation.ProjectID,
		"from", from,
		"to", to,
		"source", source,
	)
	s.ledgersChanged(ctx, change)
	s.publish(ctx, domain.EventDonationStatusChanged, s.donationEvent(donation, from))
	return true, nil
}

// ReconcileDonation fetches the donation's charge from the gateway and applies
// the mapped status. Repeating the call with an unchanged gateway status is a no-op.
func (s *Service) ReconcileDonation(ctx context.Context, donationID uuid.UUID) (*domain.ReconcileResult, error) {
	donation, err := s.findDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.PaymentChargeID == nil || strings.TrimSpace(*donation.PaymentChargeID) == "" {
		return nil, &domain.InconsistentStateError{Message: "donation has no payment gateway charge"}
	}
	if s.gateway == nil {
		return nil, &domain.GatewayError{Op: "get_payment", Err: fmt.Errorf("payment gateway not configured")}
	}

	callCtx, cancel := s.gatewayCall(ctx)
	payment, err := s.gateway.GetPayment(callCtx, *donation.PaymentChargeID)
	cancel()
	if err != nil {
		return nil, gatewayError("get_payment", err)
	}

	previous := donation.Status
	changed, err := s.transitionDonation(ctx, donation, MapGatewayStatus(payment.Status), "status_check")
	if err != nil {
		return nil, err
	}
	if !changed && donation.Status != MapGatewayStatus(payment.Status) {
		// Lost the compare-and-set; report what is stored now.
		if fresh, ferr := s.findDonation(ctx, donationID); ferr == nil {
			donation = fresh
		}
	}

	return &domain.ReconcileResult{
		Donation:       donation,
		Charge:         toCharge(payment),
		PreviousStatus: previous,
		Changed:        changed,
	}, nil
}
