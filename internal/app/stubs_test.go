package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/devpantoja/vai-me-bancar-back/pkg/asaasclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memoryRepoStub keeps projects and donations in maps. Methods the tests do not
// need fall through to the embedded interface and panic if called.
type memoryRepoStub struct {
	store.Repository

	mu        sync.Mutex
	projects  map[uuid.UUID]*domain.Project
	donations map[uuid.UUID]*domain.Donation
	clock     time.Time

	recomputeCalls   int
	transitionCalls  int
	transitionErr    error
	forceCASConflict bool

	// ledgerFailures fails that many donation writes at their ledger step with
	// ledgerErr. A failed write leaves the stub untouched, like a rollback.
	ledgerFailures int
	ledgerErr      error
	// beforeUpdate runs when UpdateDonation starts, before the row is re-read.
	beforeUpdate func()
}

func newMemoryRepoStub() *memoryRepoStub {
	return &memoryRepoStub{
		projects:  map[uuid.UUID]*domain.Project{},
		donations: map[uuid.UUID]*domain.Donation{},
		clock:     time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

func (s *memoryRepoStub) addProject(budget int64) *domain.Project {
	p := &domain.Project{
		ID:            uuid.New(),
		Name:          "Viagem dos Sonhos",
		Description:   "Uma viagem",
		Budget:        decimal.NewFromInt(budget),
		CurrentAmount: decimal.Zero,
		StartDate:     s.clock.Add(-24 * time.Hour),
		EndDate:       s.clock.Add(30 * 24 * time.Hour),
		OwnerName:     "Ana",
		Cellphone:     "11999999999",
		Category:      ComputeCategory(decimal.NewFromInt(budget)),
		Status:        domain.ProjectStatusActive,
	}
	s.projects[p.ID] = p
	return p
}

func (s *memoryRepoStub) addDonation(projectID uuid.UUID, amount int64, status domain.DonationStatus, kind domain.DonationType, chargeID string) *domain.Donation {
	d := &domain.Donation{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Amount:       decimal.NewFromInt(amount),
		Status:       status,
		DonationType: kind,
		DonorName:    "Doador",
		Cellphone:    "11988887777",
		CreatedAt:    s.clock,
	}
	if chargeID != "" {
		d.PaymentChargeID = &chargeID
	}
	s.donations[d.ID] = d
	return d
}

func (s *memoryRepoStub) CreateProject(ctx context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = s.clock
	p.UpdatedAt = s.clock
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *memoryRepoStub) UpdateProject(ctx context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.projects[p.ID]
	if !ok {
		return store.ErrProjectNotFound
	}
	cp := *p
	cp.CurrentAmount = stored.CurrentAmount
	s.projects[p.ID] = &cp
	return nil
}

func (s *memoryRepoStub) FindProjectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

// commit stores after (or deletes before when after is nil) and re-derives the
// touched ledgers as one step.
func (s *memoryRepoStub) commit(before, after *domain.Donation, compute store.LedgerFunc) (*domain.DonationChange, error) {
	touched := domain.LedgerProjects(before, after)
	for _, id := range touched {
		if _, ok := s.projects[id]; !ok {
			return nil, store.ErrProjectNotFound
		}
	}
	if len(touched) > 0 && s.ledgerFailures > 0 {
		s.ledgerFailures--
		return nil, s.ledgerErr
	}

	if after != nil {
		cp := *after
		s.donations[after.ID] = &cp
	} else {
		delete(s.donations, before.ID)
	}
	change := &domain.DonationChange{Before: before, After: after}
	for _, id := range touched {
		change.Ledgers = append(change.Ledgers, s.recomputeLocked(id, compute))
	}
	return change, nil
}

func (s *memoryRepoStub) CreateDonation(ctx context.Context, d *domain.Donation, compute store.LedgerFunc) (*domain.DonationChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[d.ProjectID]; !ok {
		return nil, store.ErrProjectNotFound
	}
	created := *d
	created.ID = uuid.New()
	created.CreatedAt = s.clock
	created.UpdatedAt = s.clock
	change, err := s.commit(nil, &created, compute)
	if err != nil {
		return nil, err
	}
	*d = created
	return change, nil
}

func (s *memoryRepoStub) UpdateDonation(ctx context.Context, id uuid.UUID, apply func(*domain.Donation) error, compute store.LedgerFunc) (*domain.DonationChange, error) {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.donations[id]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	before := *stored
	after := before
	if err := apply(&after); err != nil {
		return nil, err
	}
	if _, ok := s.projects[after.ProjectID]; !ok {
		return nil, store.ErrProjectNotFound
	}
	return s.commit(&before, &after, compute)
}

func (s *memoryRepoStub) DeleteDonation(ctx context.Context, id uuid.UUID, compute store.LedgerFunc) (*domain.DonationChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.donations[id]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	before := *stored
	return s.commit(&before, nil, compute)
}

func (s *memoryRepoStub) FindDonationByID(ctx context.Context, id uuid.UUID) (*domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *memoryRepoStub) FindDonationByChargeID(ctx context.Context, chargeID string) (*domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.donations {
		if d.PaymentChargeID != nil && *d.PaymentChargeID == chargeID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrDonationNotFound
}

func (s *memoryRepoStub) TransitionDonationStatus(ctx context.Context, id uuid.UUID, from, to domain.DonationStatus, compute store.LedgerFunc) (*domain.DonationChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionCalls++
	if s.transitionErr != nil {
		return nil, s.transitionErr
	}
	if s.forceCASConflict {
		return nil, nil
	}
	stored, ok := s.donations[id]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	if stored.Status != from {
		return nil, nil
	}
	before := *stored
	after := before
	after.Status = to
	return s.commit(&before, &after, compute)
}

func (s *memoryRepoStub) ListPendingChargedDonations(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Donation
	for _, d := range s.donations {
		if d.Status == domain.DonationPending && d.PaymentChargeID != nil && d.CreatedAt.Before(createdBefore) {
			out = append(out, *d)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryRepoStub) projectDonations(projectID uuid.UUID) []domain.Donation {
	var out []domain.Donation
	for _, d := range s.donations {
		if d.ProjectID == projectID {
			out = append(out, *d)
		}
	}
	return out
}

func (s *memoryRepoStub) AggregatePaidDonations(ctx context.Context, projectID uuid.UUID) (domain.LedgerTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AggregateDonations(s.projectDonations(projectID)), nil
}

func (s *memoryRepoStub) ListPaidDonationsBetween(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RankDonations(s.projectDonations(projectID), from, to).Ranking, nil
}

func (s *memoryRepoStub) RecomputeCurrentAmount(ctx context.Context, projectID uuid.UUID, compute store.LedgerFunc) (*domain.LedgerUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return nil, store.ErrProjectNotFound
	}
	return s.recomputeLocked(projectID, compute), nil
}

func (s *memoryRepoStub) recomputeLocked(projectID uuid.UUID, compute store.LedgerFunc) *domain.LedgerUpdate {
	s.recomputeCalls++
	p := s.projects[projectID]
	totals := AggregateDonations(s.projectDonations(projectID))
	previous := p.CurrentAmount
	p.CurrentAmount = compute(totals)
	cp := *p
	return &domain.LedgerUpdate{Project: &cp, Totals: totals, PreviousAmount: previous}
}

type gatewayStub struct {
	payments       map[string]*asaasclient.Payment
	getErr         error
	getCalls       int
	customerReqs   []asaasclient.CustomerRequest
	paymentReqs    []asaasclient.PaymentRequest
	createErr      error
	webhookToken   string
	observedCtxDue bool
}

func (g *gatewayStub) CreateCustomer(ctx context.Context, customer asaasclient.CustomerRequest) (*asaasclient.Customer, error) {
	g.customerReqs = append(g.customerReqs, customer)
	if _, ok := ctx.Deadline(); ok {
		g.observedCtxDue = true
	}
	return &asaasclient.Customer{ID: "cus_1", Name: customer.Name}, nil
}

func (g *gatewayStub) CreatePayment(ctx context.Context, payment asaasclient.PaymentRequest) (*asaasclient.Payment, error) {
	g.paymentReqs = append(g.paymentReqs, payment)
	if g.createErr != nil {
		return nil, g.createErr
	}
	out := &asaasclient.Payment{ID: "pay_1", Status: "PENDING", BillingType: payment.BillingType, Value: payment.Value}
	if payment.BillingType == "PIX" {
		out.PixTransaction = &asaasclient.PixQRCode{EncodedImage: "aW1n", Payload: "000201pix"}
	} else {
		url := "https://boleto/pay_1"
		out.BankSlipURL = &url
	}
	return out, nil
}

func (g *gatewayStub) GetPayment(ctx context.Context, paymentID string) (*asaasclient.Payment, error) {
	g.getCalls++
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &asaasclient.APIError{StatusCode: 404, Body: "not found"}
	}
	return p, nil
}

func (g *gatewayStub) ValidateWebhookToken(token string) bool {
	return g.webhookToken != "" && token == g.webhookToken
}

type publisherStub struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return p.err
}

func (p *publisherStub) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == routingKey {
			n++
		}
	}
	return n
}

type fixedPicker struct{ index int }

func (f fixedPicker) IntN(n int) int { return f.index % n }

var errStubUnavailable = errors.New("stub unavailable")

func newTestService(repo *memoryRepoStub, gateway *gatewayStub, publisher *publisherStub) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, gateway, publisher, logger, Options{
		Location:       time.UTC,
		GatewayTimeout: time.Second,
		Picker:         fixedPicker{},
		Clock:          func() time.Time { return repo.clock },
	})
}
