package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/pkg/asaasclient"
	"github.com/google/uuid"
)

func TestReconcileDonationIsIdempotent(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	donation := repo.addDonation(project.ID, 200, domain.DonationPending, domain.DonationHelp, "pay_abc")
	gateway := &gatewayStub{payments: map[string]*asaasclient.Payment{
		"pay_abc": {ID: "pay_abc", Status: "RECEIVED", Value: dec("200")},
	}}
	publisher := &publisherStub{}
	svc := newTestService(repo, gateway, publisher)
	ctx := context.Background()

	first, err := svc.ReconcileDonation(ctx, donation.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Changed || first.PreviousStatus != domain.DonationPending || first.Donation.Status != domain.DonationPaid {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Charge == nil || first.Charge.ID != "pay_abc" {
		t.Fatalf("expected the charge in the result")
	}
	stored, _ := repo.FindProjectByID(ctx, project.ID)
	if !stored.CurrentAmount.Equal(dec("200")) {
		t.Fatalf("expected ledger to include the paid donation, got %s", stored.CurrentAmount)
	}

	second, err := svc.ReconcileDonation(ctx, donation.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Changed {
		t.Fatalf("second reconcile must be a no-op")
	}
	if repo.recomputeCalls != 1 {
		t.Fatalf("expected one ledger recompute, got %d", repo.recomputeCalls)
	}
	if publisher.count(domain.EventDonationStatusChanged) != 1 {
		t.Fatalf("expected one status change event, got %d", publisher.count(domain.EventDonationStatusChanged))
	}
}

func TestReconcileDonationRefundLeavesPaidSet(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	donation := repo.addDonation(project.ID, 200, domain.DonationPaid, domain.DonationHelp, "pay_abc")
	project.CurrentAmount = dec("200")
	gateway := &gatewayStub{payments: map[string]*asaasclient.Payment{
		"pay_abc": {ID: "pay_abc", Status: "REFUNDED"},
	}}
	svc := newTestService(repo, gateway, &publisherStub{})

	result, err := svc.ReconcileDonation(context.Background(), donation.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Donation.Status != domain.DonationCancelled {
		t.Fatalf("expected cancelled, got %s", result.Donation.Status)
	}
	stored, _ := repo.FindProjectByID(context.Background(), project.ID)
	if !stored.CurrentAmount.IsZero() {
		t.Fatalf("expected refund to leave the ledger, got %s", stored.CurrentAmount)
	}
}

func TestReconcileDonationWithoutCharge(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	donation := repo.addDonation(project.ID, 200, domain.DonationPending, domain.DonationHelp, "")
	gateway := &gatewayStub{}
	svc := newTestService(repo, gateway, &publisherStub{})

	_, err := svc.ReconcileDonation(context.Background(), donation.ID)
	var inconsistent *domain.InconsistentStateError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("expected inconsistent state error, got %v", err)
	}
	if gateway.getCalls != 0 {
		t.Fatalf("gateway must not be queried")
	}
}

func TestReconcileDonationGatewayFailure(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	donation := repo.addDonation(project.ID, 200, domain.DonationPending, domain.DonationHelp, "pay_abc")
	svc := newTestService(repo, &gatewayStub{getErr: errStubUnavailable}, &publisherStub{})

	_, err := svc.ReconcileDonation(context.Background(), donation.ID)
	var gatewayErr *domain.GatewayError
	if !errors.As(err, &gatewayErr) || !errors.Is(err, errStubUnavailable) {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
	if repo.transitionCalls != 0 {
		t.Fatalf("no state change on gateway failure")
	}
}

func TestReconcileDonationNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepoStub(), &gatewayStub{}, &publisherStub{})
	_, err := svc.ReconcileDonation(context.Background(), uuid.New())
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "donation" {
		t.Fatalf("expected donation not found, got %v", err)
	}
}

func TestReconcileDonationLostRace(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	donation := repo.addDonation(project.ID, 200, domain.DonationPending, domain.DonationHelp, "pay_abc")
	repo.forceCASConflict = true
	gateway := &gatewayStub{payments: map[string]*asaasclient.Payment{
		"pay_abc": {ID: "pay_abc", Status: "CONFIRMED"},
	}}
	svc := newTestService(repo, gateway, &publisherStub{})

	result, err := svc.ReconcileDonation(context.Background(), donation.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Changed || repo.recomputeCalls != 0 {
		t.Fatalf("a lost compare-and-set must not recompute, got %+v", result)
	}
}

func TestProcessWebhookAppliesMappedStatus(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		start      domain.DonationStatus
		wantStatus domain.DonationStatus
		wantAmount string
	}{
		{name: "confirmed pays", event: WebhookPaymentConfirmed, start: domain.DonationPending, wantStatus: domain.DonationPaid, wantAmount: "150"},
		{name: "received pays", event: WebhookPaymentReceived, start: domain.DonationPending, wantStatus: domain.DonationPaid, wantAmount: "150"},
		{name: "overdue stays pending", event: WebhookPaymentOverdue, start: domain.DonationPending, wantStatus: domain.DonationPending, wantAmount: "0"},
		{name: "deleted cancels", event: WebhookPaymentDeleted, start: domain.DonationPending, wantStatus: domain.DonationCancelled, wantAmount: "0"},
		{name: "refund after payment", event: WebhookPaymentRefunded, start: domain.DonationPaid, wantStatus: domain.DonationCancelled, wantAmount: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepoStub()
			project := repo.addProject(1000)
			donation := repo.addDonation(project.ID, 150, tt.start, domain.DonationHelp, "pay_wh")
			if tt.start == domain.DonationPaid {
				project.CurrentAmount = dec("150")
			}
			svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

			err := svc.ProcessWebhook(context.Background(), domain.WebhookEvent{
				Event:   tt.event,
				Payment: &domain.WebhookCharge{ID: "pay_wh", Status: "X"},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			stored, _ := repo.FindDonationByID(context.Background(), donation.ID)
			if stored.Status != tt.wantStatus {
				t.Fatalf("expected %s, got %s", tt.wantStatus, stored.Status)
			}
			p, _ := repo.FindProjectByID(context.Background(), project.ID)
			if !p.CurrentAmount.Equal(dec(tt.wantAmount)) {
				t.Fatalf("expected current amount %s, got %s", tt.wantAmount, p.CurrentAmount)
			}
		})
	}
}

func TestProcessWebhookDropsUnusablePayloads(t *testing.T) {
	tests := []struct {
		name  string
		event domain.WebhookEvent
	}{
		{name: "no event", event: domain.WebhookEvent{Payment: &domain.WebhookCharge{ID: "pay_1"}}},
		{name: "no payment", event: domain.WebhookEvent{Event: WebhookPaymentReceived}},
		{name: "no payment id", event: domain.WebhookEvent{Event: WebhookPaymentReceived, Payment: &domain.WebhookCharge{}}},
		{name: "unhandled event", event: domain.WebhookEvent{Event: "PAYMENT_CREATED", Payment: &domain.WebhookCharge{ID: "pay_1"}}},
		{name: "unknown charge", event: domain.WebhookEvent{Event: WebhookPaymentReceived, Payment: &domain.WebhookCharge{ID: "pay_missing"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepoStub()
			project := repo.addProject(1000)
			repo.addDonation(project.ID, 150, domain.DonationPending, domain.DonationHelp, "pay_1")
			svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

			if err := svc.ProcessWebhook(context.Background(), tt.event); err != nil {
				t.Fatalf("expected the payload to be dropped, got %v", err)
			}
			if repo.transitionCalls != 0 || repo.recomputeCalls != 0 {
				t.Fatalf("dropped payloads must not change state")
			}
		})
	}
}

func TestProcessWebhookReplayIsNoOp(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	repo.addDonation(project.ID, 150, domain.DonationPending, domain.DonationHelp, "pay_1")
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})
	event := domain.WebhookEvent{Event: WebhookPaymentConfirmed, Payment: &domain.WebhookCharge{ID: "pay_1"}}

	for i := 0; i < 3; i++ {
		if err := svc.ProcessWebhook(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.recomputeCalls != 1 {
		t.Fatalf("expected a single recompute for replayed webhooks, got %d", repo.recomputeCalls)
	}
}

func TestProcessWebhookStorageFailure(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	repo.addDonation(project.ID, 150, domain.DonationPending, domain.DonationHelp, "pay_1")
	repo.transitionErr = errStubUnavailable
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	err := svc.ProcessWebhook(context.Background(), domain.WebhookEvent{Event: WebhookPaymentReceived, Payment: &domain.WebhookCharge{ID: "pay_1"}})
	if !errors.Is(err, errStubUnavailable) {
		t.Fatalf("expected storage failure to surface, got %v", err)
	}
}

func TestReconcilePendingDonationsSweep(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	paid := repo.addDonation(project.ID, 100, domain.DonationPending, domain.DonationHelp, "pay_paid")
	still := repo.addDonation(project.ID, 100, domain.DonationPending, domain.DonationHelp, "pay_pending")
	broken := repo.addDonation(project.ID, 100, domain.DonationPending, domain.DonationHelp, "pay_missing")
	repo.addDonation(project.ID, 100, domain.DonationPending, domain.DonationHelp, "")
	for _, d := range []*domain.Donation{paid, still, broken} {
		d.CreatedAt = repo.clock.Add(-time.Hour)
	}

	gateway := &gatewayStub{payments: map[string]*asaasclient.Payment{
		"pay_paid":    {ID: "pay_paid", Status: "CONFIRMED"},
		"pay_pending": {ID: "pay_pending", Status: "PENDING"},
	}}
	svc := newTestService(repo, gateway, &publisherStub{})

	result, err := svc.ReconcilePendingDonations(context.Background(), 10*time.Minute, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Evaluated != 3 || result.Changed != 1 || result.Failed != 1 {
		t.Fatalf("unexpected sweep result %+v", result)
	}
	stored, _ := repo.FindProjectByID(context.Background(), project.ID)
	if !stored.CurrentAmount.Equal(dec("100")) {
		t.Fatalf("expected only the confirmed charge in the ledger, got %s", stored.CurrentAmount)
	}
}

type reconcilerStub struct {
	calls     int
	gotMinAge time.Duration
	gotBatch  int
	hadDue    bool
	err       error
}

func (r *reconcilerStub) ReconcilePendingDonations(ctx context.Context, minAge time.Duration, batchSize int) (SweepResult, error) {
	r.calls++
	r.gotMinAge = minAge
	r.gotBatch = batchSize
	_, r.hadDue = ctx.Deadline()
	return SweepResult{Evaluated: 2, Changed: 1}, r.err
}

func TestJobsReconcilePendingCharges(t *testing.T) {
	stub := &reconcilerStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := NewJobs(stub, logger, 10*time.Minute, 25, time.Minute)

	jobs.ReconcilePendingCharges()

	if stub.calls != 1 || stub.gotMinAge != 10*time.Minute || stub.gotBatch != 25 || !stub.hadDue {
		t.Fatalf("unexpected reconciler invocation %+v", stub)
	}

	stub.err = errStubUnavailable
	jobs.ReconcilePendingCharges()
	if stub.calls != 2 {
		t.Fatalf("job should run again after a failure")
	}
}

func TestSchedulerEmptyScheduleDisablesJob(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scheduler := NewScheduler(NewJobs(&reconcilerStub{}, logger, time.Minute, 1, time.Minute), logger, "")
	scheduler.Start()
	<-scheduler.Stop().Done()
}

func TestReconcileDonationRetryRepairsLedgerAfterFailure(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	donation := repo.addDonation(project.ID, 200, domain.DonationPending, domain.DonationHelp, "pay_abc")
	connReset := errors.New("db: connection reset")
	repo.ledgerFailures = 1
	repo.ledgerErr = connReset
	gateway := &gatewayStub{payments: map[string]*asaasclient.Payment{
		"pay_abc": {ID: "pay_abc", Status: "RECEIVED"},
	}}
	publisher := &publisherStub{}
	svc := newTestService(repo, gateway, publisher)
	ctx := context.Background()

	if _, err := svc.ReconcileDonation(ctx, donation.ID); !errors.Is(err, connReset) {
		t.Fatalf("expected the storage failure to surface, got %v", err)
	}
	stored, _ := repo.FindDonationByID(ctx, donation.ID)
	if stored.Status != domain.DonationPending {
		t.Fatalf("a failed write must not leave the donation %s", stored.Status)
	}
	if publisher.count(domain.EventDonationStatusChanged) != 0 {
		t.Fatalf("no event for a failed write")
	}

	result, err := svc.ReconcileDonation(ctx, donation.ID)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !result.Changed || result.Donation.Status != domain.DonationPaid {
		t.Fatalf("expected the retry to apply the transition, got %+v", result)
	}
	p, _ := repo.FindProjectByID(ctx, project.ID)
	if !p.CurrentAmount.Equal(dec("200")) {
		t.Fatalf("ledger stale after retry: current amount %s", p.CurrentAmount)
	}
}

func TestProcessWebhookRetryRepairsLedgerAfterFailure(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	repo.addDonation(project.ID, 150, domain.DonationPending, domain.DonationHelp, "pay_1")
	repo.ledgerFailures = 1
	repo.ledgerErr = errStubUnavailable
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})
	event := domain.WebhookEvent{Event: WebhookPaymentConfirmed, Payment: &domain.WebhookCharge{ID: "pay_1"}}

	if err := svc.ProcessWebhook(context.Background(), event); !errors.Is(err, errStubUnavailable) {
		t.Fatalf("expected the first delivery to fail, got %v", err)
	}
	if err := svc.ProcessWebhook(context.Background(), event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	p, _ := repo.FindProjectByID(context.Background(), project.ID)
	if !p.CurrentAmount.Equal(dec("150")) {
		t.Fatalf("expected redelivery to fund the project, got %s", p.CurrentAmount)
	}
}
