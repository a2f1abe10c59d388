package app

import (
	"context"
	"errors"
	"strings"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
)

// Gateway webhook event types handled by ProcessWebhook.
const (
	WebhookPaymentConfirmed = "PAYMENT_CONFIRMED"
	WebhookPaymentReceived  = "PAYMENT_RECEIVED"
	WebhookPaymentOverdue   = "PAYMENT_OVERDUE"
	WebhookPaymentDeleted   = "PAYMENT_DELETED"
	WebhookPaymentRefunded  = "PAYMENT_REFUNDED"
)

var webhookStatusByEvent = map[string]domain.DonationStatus{
	WebhookPaymentConfirmed: domain.DonationPaid,
	WebhookPaymentReceived:  domain.DonationPaid,
	WebhookPaymentOverdue:   domain.DonationPending,
	WebhookPaymentDeleted:   domain.DonationCancelled,
	WebhookPaymentRefunded:  domain.DonationCancelled,
}

// ProcessWebhook applies a gateway webhook to the linked donation. Incomplete
// payloads, unhandled event types and unknown charges are logged and dropped;
// only storage failures are returned.
func (s *Service) ProcessWebhook(ctx context.Context, event domain.WebhookEvent) error {
	eventType := strings.TrimSpace(event.Event)
	if eventType == "" || event.Payment == nil || strings.TrimSpace(event.Payment.ID) == "" {
		s.logger.Warn("webhook payload incomplete; dropping", "event", eventType, "has_payment", event.Payment != nil)
		return nil
	}

	s.logger.Info("processing payment webhook",
		"event", eventType,
		"payment_id", event.Payment.ID,
		"payment_status", event.Payment.Status,
	)

	target, ok := webhookStatusByEvent[eventType]
	if !ok {
		s.logger.Info("webhook event not handled", "event", eventType)
		return nil
	}

	donation, err := s.repo.FindDonationByChargeID(ctx, event.Payment.ID)
	if err != nil {
		if errors.Is(err, store.ErrDonationNotFound) {
			s.logger.Warn("webhook for unknown charge; dropping", "event", eventType, "payment_id", event.Payment.ID)
			return nil
		}
		return err
	}

	_, err = s.transitionDonation(ctx, donation, target, "webhook:"+eventType)
	return err
}
