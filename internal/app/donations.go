package app

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/google/uuid"
)

const (
	helpCreatedMessage = "Doação para AJUDAR o projeto criada com sucesso! 💚"
	stopCreatedMessage = "Doação para PARAR o projeto criada com sucesso! 😈"
)

func validateDonation(d *domain.Donation) error {
	if !d.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if !d.Status.Valid() {
		return domain.NewValidationError("status", "must be one of pending, paid, cancelled")
	}
	if !d.DonationType.Valid() {
		return domain.NewValidationError("donation_type", "must be help or stop")
	}
	if d.ProjectID == uuid.Nil {
		return domain.NewValidationError("project_id", "is required")
	}
	if strings.TrimSpace(d.DonorName) == "" {
		return domain.NewValidationError("donor_name", "is required")
	}
	if utf8.RuneCountInString(d.DonorName) > 255 {
		return domain.NewValidationError("donor_name", "must be at most 255 characters")
	}
	if strings.TrimSpace(d.Cellphone) == "" {
		return domain.NewValidationError("cellphone", "is required")
	}
	if utf8.RuneCountInString(d.Cellphone) > 20 {
		return domain.NewValidationError("cellphone", "must be at most 20 characters")
	}
	if d.DonationMessage != nil && utf8.RuneCountInString(*d.DonationMessage) > 500 {
		return domain.NewValidationError("donation_message", "must be at most 500 characters")
	}
	return nil
}

// CreateDonation records a donation directly. A paid donation re-derives the
// project's current amount in the same write and gets a troll message.
func (s *Service) CreateDonation(ctx context.Context, req domain.CreateDonationRequest) (*domain.DonationReceipt, error) {
	donation := &domain.Donation{
		ProjectID:         req.ProjectID,
		Amount:            req.Amount,
		Status:            req.Status,
		DonationType:      req.DonationType,
		DonationMessage:   req.DonationMessage,
		DonorName:         strings.TrimSpace(req.DonorName),
		Cellphone:         strings.TrimSpace(req.Cellphone),
		PaymentCustomerID: req.PaymentCustomerID,
		PaymentChargeID:   req.PaymentChargeID,
	}
	if donation.DonationType == "" {
		donation.DonationType = domain.DonationHelp
	}
	if err := validateDonation(donation); err != nil {
		return nil, err
	}

	project, err := s.findProject(ctx, donation.ProjectID)
	if err != nil {
		return nil, err
	}

	change, err := s.repo.CreateDonation(ctx, donation, CurrentAmount)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			return nil, &domain.NotFoundError{Resource: "project", ID: donation.ProjectID.String()}
		}
		return nil, err
	}
	s.logger.Info("donation created",
		"donation_id", donation.ID,
		"project_id", donation.ProjectID,
		"amount", donation.Amount.StringFixed(2),
		"donation_type", donation.DonationType,
		"status", donation.Status,
	)
	s.publish(ctx, domain.EventDonationCreated, s.donationEvent(donation, ""))
	if updated := s.ledgersChanged(ctx, change); updated != nil {
		project = updated
	}

	message := helpCreatedMessage
	if donation.DonationType == domain.DonationStop {
		message = stopCreatedMessage
	}

	return &domain.DonationReceipt{
		Message:         message,
		Donation:        donation,
		TrollMessage:    DonationTrollMessage(s.picker, project, donation),
		ProjectProgress: ProgressPercentage(project.CurrentAmount, project.Budget),
		IsGoalReached:   IsGoalReached(project.CurrentAmount, project.Budget),
		DonationType:    donation.DonationType,
	}, nil
}

// GetDonation returns a single donation.
func (s *Service) GetDonation(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	return s.findDonation(ctx, donationID)
}

// ListDonations returns every donation.
func (s *Service) ListDonations(ctx context.Context) ([]domain.Donation, error) {
	return s.repo.ListDonations(ctx)
}

// ListProjectDonations returns a project together with its donations.
func (s *Service) ListProjectDonations(ctx context.Context, projectID uuid.UUID) (*domain.Project, []domain.Donation, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	donations, err := s.repo.ListDonationsByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return project, donations, nil
}

// UpdateDonation applies a partial update. Only the requested fields are written,
// on top of the row as stored when the write takes its locks, and the ledgers of
// every project whose paid set changed are re-derived in the same write.
func (s *Service) UpdateDonation(ctx context.Context, donationID uuid.UUID, req domain.UpdateDonationRequest) (*domain.Donation, error) {
	if req.ProjectID != nil {
		if _, err := s.findProject(ctx, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	apply := func(d *domain.Donation) error {
		if req.ProjectID != nil {
			d.ProjectID = *req.ProjectID
		}
		if req.Amount != nil {
			d.Amount = *req.Amount
		}
		if req.Status != nil {
			d.Status = *req.Status
		}
		if req.DonorName != nil {
			d.DonorName = strings.TrimSpace(*req.DonorName)
		}
		if req.Cellphone != nil {
			d.Cellphone = strings.TrimSpace(*req.Cellphone)
		}
		if req.PaymentCustomerID != nil {
			d.PaymentCustomerID = req.PaymentCustomerID
		}
		if req.PaymentChargeID != nil {
			d.PaymentChargeID = req.PaymentChargeID
		}
		return validateDonation(d)
	}

	change, err := s.donationWrite(donationID, func() (*domain.DonationChange, error) {
		return s.repo.UpdateDonation(ctx, donationID, apply, CurrentAmount)
	})
	if err != nil {
		return nil, err
	}
	s.ledgersChanged(ctx, change)

	donation := change.After
	if change.Before.Status != donation.Status {
		s.publish(ctx, domain.EventDonationStatusChanged, s.donationEvent(donation, change.Before.Status))
	}
	return donation, nil
}

// DeleteDonation removes a donation and re-derives its project's ledger if it was paid.
func (s *Service) DeleteDonation(ctx context.Context, donationID uuid.UUID) error {
	change, err := s.donationWrite(donationID, func() (*domain.DonationChange, error) {
		return s.repo.DeleteDonation(ctx, donationID, CurrentAmount)
	})
	if err != nil {
		return err
	}
	s.ledgersChanged(ctx, change)
	return nil
}
