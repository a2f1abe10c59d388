/**
 * @description
 * Internal event payloads published to RabbitMQ whenever the ledger changes in
 * a way other services may care about.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys for fundraising events.
const (
	EventDonationCreated       = "donation.created"
	EventDonationStatusChanged = "donation.status_changed"
	EventProjectGoalReached    = "project.goal_reached"
	EventProjectStopWins       = "project.stop_wins"
)

// DonationEvent is published when a donation is created or changes status.
type DonationEvent struct {
	DonationID     uuid.UUID       `json:"donation_id"`
	ProjectID      uuid.UUID       `json:"project_id"`
	Amount         decimal.Decimal `json:"amount"`
	DonationType   DonationType    `json:"donation_type"`
	Status         DonationStatus  `json:"status"`
	PreviousStatus DonationStatus  `json:"previous_status,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ProjectEvent is published when a project crosses a ledger milestone.
type ProjectEvent struct {
	ProjectID     uuid.UUID       `json:"project_id"`
	Name          string          `json:"name"`
	Budget        decimal.Decimal `json:"budget"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	HelpAmount    decimal.Decimal `json:"help_amount"`
	StopAmount    decimal.Decimal `json:"stop_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}
