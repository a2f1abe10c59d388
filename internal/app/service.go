/**
 * @description
 * Core business logic of the fundraising service. The Service ties the pure
 * ledger, progress, stats and ranking rules to the store, the payment gateway
 * and the event publisher.
 *
 * @notes
 * - current_amount is a materialized view of the paid donations. The store
 *   re-derives it in the same transaction as any donation write that changes the
 *   paid set; it is never adjusted in place.
 * - Clock and random source are injected through Options.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/devpantoja/vai-me-bancar-back/pkg/asaasclient"
	"github.com/google/uuid"
)

// PaymentGateway defines the payment provider calls the service needs.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, customer asaasclient.CustomerRequest) (*asaasclient.Customer, error)
	CreatePayment(ctx context.Context, payment asaasclient.PaymentRequest) (*asaasclient.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*asaasclient.Payment, error)
	ValidateWebhookToken(token string) bool
}

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Options tune the service. Zero values fall back to sensible defaults.
type Options struct {
	CategoryLabels CategoryLabels
	Location       *time.Location
	GatewayTimeout time.Duration
	ChargeDueDays  int
	EventsExchange string
	Picker         Picker
	Clock          func() time.Time
}

// Service provides the business logic for projects and donations.
type Service struct {
	repo      store.Repository
	gateway   PaymentGateway
	publisher EventPublisher
	logger    *slog.Logger

	labels         CategoryLabels
	loc            *time.Location
	gatewayTimeout time.Duration
	chargeDueDays  int
	exchange       string
	picker         Picker
	now            func() time.Time
}

// NewService creates a new fundraising service.
func NewService(repo store.Repository, gateway PaymentGateway, publisher EventPublisher, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	labels := opts.CategoryLabels
	defaults := DefaultCategoryLabels()
	if labels.Low == "" {
		labels.Low = defaults.Low
	}
	if labels.Mid == "" {
		labels.Mid = defaults.Mid
	}
	if labels.High == "" {
		labels.High = defaults.High
	}

	s := &Service{
		repo:           repo,
		gateway:        gateway,
		publisher:      publisher,
		logger:         logger,
		labels:         labels,
		loc:            opts.Location,
		gatewayTimeout: opts.GatewayTimeout,
		chargeDueDays:  opts.ChargeDueDays,
		exchange:       opts.EventsExchange,
		picker:         opts.Picker,
		now:            opts.Clock,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.gatewayTimeout <= 0 {
		s.gatewayTimeout = 15 * time.Second
	}
	if s.chargeDueDays <= 0 {
		s.chargeDueDays = 3
	}
	if s.exchange == "" {
		s.exchange = "fundraising.events"
	}
	if s.picker == nil {
		s.picker = DefaultPicker()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ValidateWebhookToken checks the token sent by the payment gateway.
func (s *Service) ValidateWebhookToken(token string) bool {
	if s.gateway == nil {
		return false
	}
	return s.gateway.ValidateWebhookToken(token)
}

func (s *Service) decorate(p *domain.Project) *domain.Project {
	if p != nil {
		p.CategoryLabel = s.labels.Label(p.Category)
	}
	return p
}

func (s *Service) findProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	project, err := s.repo.FindProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return nil, &domain.NotFoundError{Resource: "project", ID: projectID.String()}
		}
		return nil, err
	}
	return s.decorate(project), nil
}

func (s *Service) findDonation(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	donation, err := s.repo.FindDonationByID(ctx, donationID)
	if err != nil {
		if errors.Is(err, store.ErrDonationNotFound) {
			return nil, &domain.NotFoundError{Resource: "donation", ID: donationID.String()}
		}
		return nil, err
	}
	return donation, nil
}

// recomputeLedger re-derives current_amount for a project under its row lock.
func (s *Service) recomputeLedger(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	update, err := s.repo.RecomputeCurrentAmount(ctx, projectID, CurrentAmount)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return nil, &domain.NotFoundError{Resource: "project", ID: projectID.String()}
		}
		return nil, err
	}
	return s.ledgerRecomputed(ctx, update, false), nil
}

// ledgersChanged reports the ledgers a donation write re-derived. It returns the
// donation's current project when its ledger was among them.
func (s *Service) ledgersChanged(ctx context.Context, change *domain.DonationChange) *domain.Project {
	var current *domain.Project
	for _, update := range change.Ledgers {
		owns := change.After != nil && change.After.ProjectID == update.Project.ID
		stopGrew := owns && change.After.Status == domain.DonationPaid && change.After.DonationType == domain.DonationStop
		project := s.ledgerRecomputed(ctx, update, stopGrew)
		if owns {
			current = project
		}
	}
	return current
}

// ledgerRecomputed logs a committed ledger and publishes milestone events. stopGrew
// marks recomputes caused by a stop donation entering or changing in the paid set.
func (s *Service) ledgerRecomputed(ctx context.Context, update *domain.LedgerUpdate, stopGrew bool) *domain.Project {
	project := s.decorate(update.Project)

	s.logger.Info("project ledger recomputed",
		"project_id", project.ID,
		"previous_amount", update.PreviousAmount.StringFixed(2),
		"current_amount", project.CurrentAmount.StringFixed(2),
		"help_amount", update.Totals.HelpAmount.StringFixed(2),
		"stop_amount", update.Totals.StopAmount.StringFixed(2),
	)

	if !IsGoalReached(update.PreviousAmount, project.Budget) && IsGoalReached(project.CurrentAmount, project.Budget) {
		s.publish(ctx, domain.EventProjectGoalReached, s.projectEvent(project, update.Totals))
	}
	if stopGrew && StopWins(update.Totals.HelpAmount, update.Totals.StopAmount) {
		s.publish(ctx, domain.EventProjectStopWins, s.projectEvent(project, update.Totals))
	}
	return project
}

// donationWrite retries a store write whose donation moved between projects while
// the write waited for locks, and translates store sentinels.
func (s *Service) donationWrite(donationID uuid.UUID, write func() (*domain.DonationChange, error)) (*domain.DonationChange, error) {
	const attempts = 3
	var (
		change *domain.DonationChange
		err    error
	)
	for i := 0; i < attempts; i++ {
		change, err = write()
		if !errors.Is(err, store.ErrDonationMoved) {
			break
		}
		s.logger.Warn("donation moved during write, retrying", "donation_id", donationID, "attempt", i+1)
	}
	switch {
	case errors.Is(err, store.ErrDonationNotFound):
		return nil, &domain.NotFoundError{Resource: "donation", ID: donationID.String()}
	case errors.Is(err, store.ErrProjectNotFound):
		return nil, &domain.NotFoundError{Resource: "project"}
	}
	return change, err
}

func (s *Service) projectEvent(project *domain.Project, totals domain.LedgerTotals) domain.ProjectEvent {
	return domain.ProjectEvent{
		ProjectID:     project.ID,
		Name:          project.Name,
		Budget:        project.Budget,
		CurrentAmount: project.CurrentAmount,
		HelpAmount:    totals.HelpAmount,
		StopAmount:    totals.StopAmount,
		Timestamp:     s.now().UTC(),
	}
}

func (s *Service) donationEvent(d *domain.Donation, previous domain.DonationStatus) domain.DonationEvent {
	return domain.DonationEvent{
		DonationID:     d.ID,
		ProjectID:      d.ProjectID,
		Amount:         d.Amount,
		DonationType:   d.DonationType,
		Status:         d.Status,
		PreviousStatus: previous,
		Timestamp:      s.now().UTC(),
	}
}

// publish is best effort. A broker failure never fails the request that caused the event.
func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.exchange, routingKey, body); err != nil {
		s.logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

// gatewayCall bounds a gateway call with the configured timeout.
func (s *Service) gatewayCall(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.gatewayTimeout)
}

func gatewayError(op string, err error) error {
	var apiErr *asaasclient.APIError
	if errors.As(err, &apiErr) {
		return &domain.GatewayError{Op: op, StatusCode: apiErr.StatusCode, Body: apiErr.Body, Err: err}
	}
	return &domain.GatewayError{Op: op, Err: err}
}

func toCharge(p *asaasclient.Payment) *domain.Charge {
	if p == nil {
		return nil
	}
	charge := &domain.Charge{
		ID:                p.ID,
		Status:            p.Status,
		Value:             p.Value,
		BillingType:       p.BillingType,
		CustomerID:        p.Customer,
		DueDate:           p.DueDate,
		ExternalReference: p.ExternalReference,
		InvoiceURL:        p.InvoiceURL,
		BankSlipURL:       p.BankSlipURL,
	}
	if p.PixTransaction != nil {
		payload := p.PixTransaction.Payload
		qr := p.PixTransaction.EncodedImage
		if payload != "" {
			charge.PixPayload = &payload
		}
		if qr != "" {
			charge.PixQRCode = &qr
		}
	}
	return charge
}
