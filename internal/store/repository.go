/**
 * @description
 * This file defines the `Repository` interface, the contract for every data
 * access operation the fundraising service needs. The app layer depends on this
 * interface only, so tests can swap in hand-written stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal: ids and money.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerFunc derives a project's current amount from its paid donation totals.
type LedgerFunc func(domain.LedgerTotals) decimal.Decimal

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Project methods
	CreateProject(ctx context.Context, project *domain.Project) error
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, projectID uuid.UUID) error
	FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)

	// Donation writes. Each one locks the affected project rows before the donation
	// row and, when the project's paid set changes, re-derives its current amount
	// with compute before the single commit.
	CreateDonation(ctx context.Context, donation *domain.Donation, compute LedgerFunc) (*domain.DonationChange, error)
	// UpdateDonation applies apply to the locked, freshly read row and persists the result.
	UpdateDonation(ctx context.Context, donationID uuid.UUID, apply func(*domain.Donation) error, compute LedgerFunc) (*domain.DonationChange, error)
	DeleteDonation(ctx context.Context, donationID uuid.UUID, compute LedgerFunc) (*domain.DonationChange, error)
	// TransitionDonationStatus moves a donation from one status to another only if it is
	// still in `from`. It returns a nil change when another writer got there first.
	TransitionDonationStatus(ctx context.Context, donationID uuid.UUID, from, to domain.DonationStatus, compute LedgerFunc) (*domain.DonationChange, error)

	// Donation reads
	FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error)
	FindDonationByChargeID(ctx context.Context, chargeID string) (*domain.Donation, error)
	ListDonations(ctx context.Context) ([]domain.Donation, error)
	ListDonationsByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Donation, error)
	ListPendingChargedDonations(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error)

	// Ledger methods
	AggregatePaidDonations(ctx context.Context, projectID uuid.UUID) (domain.LedgerTotals, error)
	ListPaidDonationsBetween(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]domain.Donation, error)
	// RecomputeCurrentAmount locks the project row, re-aggregates its paid donations and
	// stores compute(totals) as the new current amount.
	RecomputeCurrentAmount(ctx context.Context, projectID uuid.UUID, compute LedgerFunc) (*domain.LedgerUpdate, error)
}
