/**
 * @description
 * Read models produced by the fundraising engine: ledger totals, competitive
 * help-vs-stop statistics and the daily donor ranking.
 */

package domain

import "github.com/shopspring/decimal"

// LedgerTotals holds the sums and counts of paid donations for one project,
// partitioned by donation type.
type LedgerTotals struct {
	HelpAmount decimal.Decimal `json:"help_amount"`
	StopAmount decimal.Decimal `json:"stop_amount"`
	HelpCount  int64           `json:"help_count"`
	StopCount  int64           `json:"stop_count"`
}

// TotalPaid is the sum of every paid donation regardless of type.
func (t LedgerTotals) TotalPaid() decimal.Decimal {
	return t.HelpAmount.Add(t.StopAmount)
}

// FundraisingStats is the competitive view of a project's paid donations.
type FundraisingStats struct {
	HelpAmount     decimal.Decimal `json:"help_amount"`
	StopAmount     decimal.Decimal `json:"stop_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	HelpPercentage decimal.Decimal `json:"help_percentage"`
	StopPercentage decimal.Decimal `json:"stop_percentage"`
	StopWins       bool            `json:"stop_wins"`
	TrollMessage   *string         `json:"troll_message"`
	HelpCount      int64           `json:"help_count"`
	StopCount      int64           `json:"stop_count"`
}

// DailyRanking lists today's paid donations ordered by amount.
type DailyRanking struct {
	Project          *Project        `json:"project,omitempty"`
	Ranking          []Donation      `json:"ranking"`
	TopDonor         *Donation       `json:"top_donor"`
	LowestDonor      *Donation       `json:"lowest_donor"`
	TotalDonorsToday int             `json:"total_donors_today"`
	TotalAmountToday decimal.Decimal `json:"total_amount_today"`
}

// TrollMessagePreview is the response of the troll-message preview endpoint.
type TrollMessagePreview struct {
	Message      string          `json:"message"`
	DonateAmount decimal.Decimal `json:"donate_amount"`
	DonorName    string          `json:"donor_name"`
	ProjectName  string          `json:"project_name"`
}

// LedgerUpdate is the outcome of re-deriving a project's current amount.
type LedgerUpdate struct {
	Project        *Project
	Totals         LedgerTotals
	PreviousAmount decimal.Decimal
}

// DonationChange is the outcome of a donation write together with the ledgers it
// re-derived. Before is nil for inserts and After is nil for deletes.
type DonationChange struct {
	Before  *Donation
	After   *Donation
	Ledgers []*LedgerUpdate
}
