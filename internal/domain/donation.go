package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationPaid      DonationStatus = "paid"
	DonationCancelled DonationStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s DonationStatus) Valid() bool {
	switch s {
	case DonationPending, DonationPaid, DonationCancelled:
		return true
	}
	return false
}

// DonationType says whether a donation helps or sabotages the project.
type DonationType string

const (
	DonationHelp DonationType = "help"
	DonationStop DonationType = "stop"
)

// Valid reports whether t is one of the known donation types.
func (t DonationType) Valid() bool {
	return t == DonationHelp || t == DonationStop
}

// Donation maps to the `donations` table.
type Donation struct {
	ID                uuid.UUID       `json:"id"`
	ProjectID         uuid.UUID       `json:"project_id"`
	Amount            decimal.Decimal `json:"amount"`
	Status            DonationStatus  `json:"status"`
	DonationType      DonationType    `json:"donation_type"`
	DonationMessage   *string         `json:"donation_message,omitempty"`
	DonorName         string          `json:"donor_name"`
	Cellphone         string          `json:"cellphone"`
	PaymentCustomerID *string         `json:"payment_customer_id,omitempty"`
	PaymentChargeID   *string         `json:"payment_charge_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// LedgerProjects returns the projects whose paid set differs between before and
// after. Either side may be nil for an insert or a delete.
func LedgerProjects(before, after *Donation) []uuid.UUID {
	wasPaid := before != nil && before.Status == DonationPaid
	isPaid := after != nil && after.Status == DonationPaid
	switch {
	case !wasPaid && !isPaid:
		return nil
	case wasPaid && !isPaid:
		return []uuid.UUID{before.ProjectID}
	case !wasPaid && isPaid:
		return []uuid.UUID{after.ProjectID}
	}
	if before.ProjectID != after.ProjectID {
		return []uuid.UUID{before.ProjectID, after.ProjectID}
	}
	if before.Amount.Equal(after.Amount) && before.DonationType == after.DonationType {
		return nil
	}
	return []uuid.UUID{after.ProjectID}
}

// CreateDonationRequest is the DTO for direct donation creation.
type CreateDonationRequest struct {
	ProjectID         uuid.UUID       `json:"project_id"`
	Amount            decimal.Decimal `json:"amount"`
	Status            DonationStatus  `json:"status"`
	DonationType      DonationType    `json:"donation_type"`
	DonationMessage   *string         `json:"donation_message"`
	DonorName         string          `json:"donor_name"`
	Cellphone         string          `json:"cellphone"`
	PaymentCustomerID *string         `json:"payment_customer_id"`
	PaymentChargeID   *string         `json:"payment_charge_id"`
}

// UpdateDonationRequest is the DTO for partial donation updates.
type UpdateDonationRequest struct {
	ProjectID         *uuid.UUID       `json:"project_id"`
	Amount            *decimal.Decimal `json:"amount"`
	Status            *DonationStatus  `json:"status"`
	DonorName         *string          `json:"donor_name"`
	Cellphone         *string          `json:"cellphone"`
	PaymentCustomerID *string          `json:"payment_customer_id"`
	PaymentChargeID   *string          `json:"payment_charge_id"`
}

// DonationReceipt is returned after a donation is created directly.
type DonationReceipt struct {
	Message         string          `json:"message"`
	Donation        *Donation       `json:"donate"`
	TrollMessage    *string         `json:"troll_message"`
	ProjectProgress decimal.Decimal `json:"project_progress"`
	IsGoalReached   bool            `json:"is_goal_reached"`
	DonationType    DonationType    `json:"donation_type"`
}

// BillingType selects the gateway payment method for a charge.
type BillingType string

const (
	BillingPix    BillingType = "PIX"
	BillingBoleto BillingType = "BOLETO"
)

// PaymentDonationRequest is the DTO for donations paid through the gateway.
// Address fields are only required for boleto charges.
type PaymentDonationRequest struct {
	ProjectID       uuid.UUID       `json:"project_id"`
	Amount          decimal.Decimal `json:"amount"`
	DonorName       string          `json:"donor_name"`
	DonorEmail      string          `json:"donor_email"`
	DonorCPF        string          `json:"donor_cpf"`
	DonorPhone      string          `json:"donor_phone"`
	DonorAddress    string          `json:"donor_address"`
	DonorCity       string          `json:"donor_city"`
	DonorState      string          `json:"donor_state"`
	DonorZipcode    string          `json:"donor_zipcode"`
	Description     string          `json:"description"`
	DonationType    DonationType    `json:"donation_type"`
	DonationMessage *string         `json:"donation_message"`
}

// PaymentDonationResult is returned after a gateway charge is created.
type PaymentDonationResult struct {
	Message      string    `json:"message"`
	Donation     *Donation `json:"donate"`
	Charge       *Charge   `json:"payment"`
	PixCode      *string   `json:"pix_code,omitempty"`
	PixCopyPaste *string   `json:"pix_copy_paste,omitempty"`
	BoletoURL    *string   `json:"boleto_url,omitempty"`
}

// ReconcileResult is returned by the payment status check.
type ReconcileResult struct {
	Donation       *Donation      `json:"donate"`
	Charge         *Charge        `json:"payment"`
	PreviousStatus DonationStatus `json:"previous_status"`
	Changed        bool           `json:"changed"`
}
