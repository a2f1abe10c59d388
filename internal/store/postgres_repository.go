/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL for projects, donations and the paid-donation ledger.
 *
 * @dependencies
 * - bytes, context, errors, fmt, slices, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - current_amount is only written under the project row lock, in the same
 *   transaction as the donation write that changed the paid set.
 * - Lock order is always project rows (sorted by id) and then the donation row.
 */

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrDonationNotFound = errors.New("donation not found")
	// ErrDonationMoved means the donation changed project while the write waited
	// for locks. The write did not happen and can be retried.
	ErrDonationMoved = errors.New("donation moved to another project")
)

const pgForeignKeyViolation = "23503"

const projectColumns = `id, name, description, budget, current_amount, start_date, end_date,
	owner_name, cellphone, category, status, created_at, updated_at`

const donationColumns = `id, project_id, amount, status, donation_type, donation_message,
	donor_name, cellphone, payment_customer_id, payment_charge_id, created_at, updated_at`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var category string
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Budget, &p.CurrentAmount, &p.StartDate, &p.EndDate,
		&p.OwnerName, &p.Cellphone, &category, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = domain.Tier(category)
	return &p, nil
}

func scanDonation(row rowScanner) (*domain.Donation, error) {
	var d domain.Donation
	var status, donationType string
	err := row.Scan(
		&d.ID, &d.ProjectID, &d.Amount, &status, &donationType, &d.DonationMessage,
		&d.DonorName, &d.Cellphone, &d.PaymentCustomerID, &d.PaymentChargeID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = domain.DonationStatus(status)
	d.DonationType = domain.DonationType(donationType)
	return &d, nil
}

func collectDonations(rows pgx.Rows) ([]domain.Donation, error) {
	defer rows.Close()

	donations := []domain.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// CreateProject inserts a project and fills in its generated id and timestamps.
func (r *PostgresRepository) CreateProject(ctx context.Context, p *domain.Project) error {
	query := `
		INSERT INTO projects (
			name, description, budget, current_amount, start_date, end_date,
			owner_name, cellphone, category, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.Budget,
		p.CurrentAmount,
		p.StartDate,
		p.EndDate,
		p.OwnerName,
		p.Cellphone,
		string(p.Category),
		p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdateProject persists the editable fields of a project. current_amount is never written here.
func (r *PostgresRepository) UpdateProject(ctx context.Context, p *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, budget = $4, start_date = $5, end_date = $6,
			owner_name = $7, cellphone = $8, category = $9, status = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING current_amount, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Budget,
		p.StartDate,
		p.EndDate,
		p.OwnerName,
		p.Cellphone,
		string(p.Category),
		p.Status,
	).Scan(&p.CurrentAmount, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProjectNotFound
	}
	return err
}

// DeleteProject removes a project. Projects that still own donations are rejected.
func (r *PostgresRepository) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM projects WHERE id = $1", projectID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProjectHasDonations
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// FindProjectByID retrieves a single project.
func (r *PostgresRepository) FindProjectByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	row := r.db.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", projectID)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListProjects returns every project, newest first.
func (r *PostgresRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.Query(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockProjects takes the row locks of the given projects in id order.
func lockProjects(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) error {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	for _, id := range ids {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, "SELECT id FROM projects WHERE id = $1 FOR UPDATE", id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to lock project: %w", err)
		}
	}
	return nil
}

// lockDonation reads the donation row under lock and checks it still belongs to
// the project locked for it.
func lockDonation(ctx context.Context, tx pgx.Tx, donationID, projectID uuid.UUID) (*domain.Donation, error) {
	row := tx.QueryRow(ctx, "SELECT "+donationColumns+" FROM donations WHERE id = $1 FOR UPDATE", donationID)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to lock donation: %w", err)
	}
	if d.ProjectID != projectID {
		return nil, ErrDonationMoved
	}
	return d, nil
}

// recomputeLocked re-derives current_amount of a project whose row lock the caller holds.
func recomputeLocked(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, compute LedgerFunc) (*domain.LedgerUpdate, error) {
	project, err := scanProject(tx.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	update := &domain.LedgerUpdate{Project: project, PreviousAmount: project.CurrentAmount}
	if err := tx.QueryRow(ctx, aggregatePaidQuery, projectID).Scan(
		&update.Totals.HelpAmount, &update.Totals.StopAmount, &update.Totals.HelpCount, &update.Totals.StopCount,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate paid donations: %w", err)
	}

	current := compute(update.Totals)
	err = tx.QueryRow(ctx,
		"UPDATE projects SET current_amount = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at",
		projectID, current,
	).Scan(&project.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update current amount: %w", err)
	}
	project.CurrentAmount = current
	return update, nil
}

// rederive recomputes every project whose paid set the write changed.
func rederive(ctx context.Context, tx pgx.Tx, change *domain.DonationChange, compute LedgerFunc) error {
	for _, projectID := range domain.LedgerProjects(change.Before, change.After) {
		update, err := recomputeLocked(ctx, tx, projectID, compute)
		if err != nil {
			return err
		}
		change.Ledgers = append(change.Ledgers, update)
	}
	return nil
}

func insertDonation(ctx context.Context, q querier, d *domain.Donation) error {
	query := `
		INSERT INTO donations (
			project_id, amount, status, donation_type, donation_message,
			donor_name, cellphone, payment_customer_id, payment_charge_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		d.ProjectID,
		d.Amount,
		string(d.Status),
		string(d.DonationType),
		d.DonationMessage,
		d.DonorName,
		d.Cellphone,
		d.PaymentCustomerID,
		d.PaymentChargeID,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrProjectNotFound
	}
	return err
}

func writeDonation(ctx context.Context, q querier, d *domain.Donation) error {
	query := `
		UPDATE donations
		SET project_id = $2, amount = $3, status = $4, donation_type = $5, donation_message = $6,
			donor_name = $7, cellphone = $8, payment_customer_id = $9, payment_charge_id = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := q.QueryRow(ctx, query,
		d.ID,
		d.ProjectID,
		d.Amount,
		string(d.Status),
		string(d.DonationType),
		d.DonationMessage,
		d.DonorName,
		d.Cellphone,
		d.PaymentCustomerID,
		d.PaymentChargeID,
	).Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDonationNotFound
		}
		if isForeignKeyViolation(err) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}

// CreateDonation inserts a donation and fills in its generated id and timestamps.
// A paid donation re-derives its project's ledger before the commit.
func (r *PostgresRepository) CreateDonation(ctx context.Context, d *domain.Donation, compute LedgerFunc) (*domain.DonationChange, error) {
	change := &domain.DonationChange{After: d}
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProjects(ctx, tx, d.ProjectID); err != nil {
			return err
		}
		if err := insertDonation(ctx, tx, d); err != nil {
			return err
		}
		return rederive(ctx, tx, change, compute)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// UpdateDonation re-reads the donation under lock, lets apply edit it and writes it
// back. Only what apply changes differs from the stored row, so a concurrent status
// transition is never overwritten.
func (r *PostgresRepository) UpdateDonation(ctx context.Context, donationID uuid.UUID, apply func(*domain.Donation) error, compute LedgerFunc) (*domain.DonationChange, error) {
	current, err := r.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	target := *current
	if err := apply(&target); err != nil {
		return nil, err
	}

	var change *domain.DonationChange
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProjects(ctx, tx, current.ProjectID, target.ProjectID); err != nil {
			return err
		}
		before, err := lockDonation(ctx, tx, donationID, current.ProjectID)
		if err != nil {
			return err
		}
		after := *before
		if err := apply(&after); err != nil {
			return err
		}
		if after.ProjectID != target.ProjectID {
			return ErrDonationMoved
		}
		if err := writeDonation(ctx, tx, &after); err != nil {
			return err
		}
		change = &domain.DonationChange{Before: before, After: &after}
		return rederive(ctx, tx, change, compute)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// DeleteDonation removes a donation and re-derives its project's ledger if it was paid.
func (r *PostgresRepository) DeleteDonation(ctx context.Context, donationID uuid.UUID, compute LedgerFunc) (*domain.DonationChange, error) {
	current, err := r.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, err
	}

	var change *domain.DonationChange
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProjects(ctx, tx, current.ProjectID); err != nil {
			return err
		}
		before, err := lockDonation(ctx, tx, donationID, current.ProjectID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM donations WHERE id = $1", donationID); err != nil {
			return err
		}
		change = &domain.DonationChange{Before: before}
		return rederive(ctx, tx, change, compute)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// TransitionDonationStatus is a compare-and-set on the status column, committed
// together with the ledger it affects. Two concurrent reconciliations of the same
// donation apply the transition once.
func (r *PostgresRepository) TransitionDonationStatus(ctx context.Context, donationID uuid.UUID, from, to domain.DonationStatus, compute LedgerFunc) (*domain.DonationChange, error) {
	current, err := r.FindDonationByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if current.Status != from {
		return nil, nil
	}

	var change *domain.DonationChange
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProjects(ctx, tx, current.ProjectID); err != nil {
			return err
		}
		before, err := lockDonation(ctx, tx, donationID, current.ProjectID)
		if err != nil {
			return err
		}
		if before.Status != from {
			return nil
		}
		after := *before
		after.Status = to
		if err := tx.QueryRow(ctx,
			"UPDATE donations SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at",
			donationID, string(to),
		).Scan(&after.UpdatedAt); err != nil {
			return err
		}
		change = &domain.DonationChange{Before: before, After: &after}
		return rederive(ctx, tx, change, compute)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// FindDonationByID retrieves a single donation.
func (r *PostgresRepository) FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	row := r.db.QueryRow(ctx, "SELECT "+donationColumns+" FROM donations WHERE id = $1", donationID)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return d, nil
}

// FindDonationByChargeID retrieves the donation linked to a gateway charge.
func (r *PostgresRepository) FindDonationByChargeID(ctx context.Context, chargeID string) (*domain.Donation, error) {
	row := r.db.QueryRow(ctx, "SELECT "+donationColumns+" FROM donations WHERE payment_charge_id = $1", chargeID)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListDonations returns every donation, newest first.
func (r *PostgresRepository) ListDonations(ctx context.Context) ([]domain.Donation, error) {
	rows, err := r.db.Query(ctx, "SELECT "+donationColumns+" FROM donations ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

// ListDonationsByProject returns the donations of one project, newest first.
func (r *PostgresRepository) ListDonationsByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Donation, error) {
	rows, err := r.db.Query(ctx, "SELECT "+donationColumns+" FROM donations WHERE project_id = $1 ORDER BY created_at DESC", projectID)
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

// ListPendingChargedDonations returns pending donations with a gateway charge created before the cutoff.
func (r *PostgresRepository) ListPendingChargedDonations(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE status = 'pending'
		  AND payment_charge_id IS NOT NULL
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

const aggregatePaidQuery = `
	SELECT
		COALESCE(SUM(amount) FILTER (WHERE donation_type = 'help'), 0),
		COALESCE(SUM(amount) FILTER (WHERE donation_type = 'stop'), 0),
		COUNT(*) FILTER (WHERE donation_type = 'help'),
		COUNT(*) FILTER (WHERE donation_type = 'stop')
	FROM donations
	WHERE project_id = $1 AND status = 'paid'
`

// AggregatePaidDonations sums and counts paid donations of a project by type.
func (r *PostgresRepository) AggregatePaidDonations(ctx context.Context, projectID uuid.UUID) (domain.LedgerTotals, error) {
	var totals domain.LedgerTotals
	err := r.db.QueryRow(ctx, aggregatePaidQuery, projectID).Scan(
		&totals.HelpAmount, &totals.StopAmount, &totals.HelpCount, &totals.StopCount,
	)
	return totals, err
}

// ListPaidDonationsBetween returns paid donations created in [from, to), largest first.
func (r *PostgresRepository) ListPaidDonationsBetween(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]domain.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE project_id = $1
		  AND status = 'paid'
		  AND created_at >= $2
		  AND created_at < $3
		ORDER BY amount DESC, created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, projectID, from, to)
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

// RecomputeCurrentAmount re-derives a project's current amount inside a transaction.
// The project row is locked first so concurrent recomputes for one project run one at a time.
func (r *PostgresRepository) RecomputeCurrentAmount(ctx context.Context, projectID uuid.UUID, compute LedgerFunc) (*domain.LedgerUpdate, error) {
	var update *domain.LedgerUpdate
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockProjects(ctx, tx, projectID); err != nil {
			return err
		}
		var err error
		update, err = recomputeLocked(ctx, tx, projectID, compute)
		return err
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}
