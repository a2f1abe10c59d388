package app

import (
	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

// AggregateDonations sums paid donations by type. Pending and cancelled rows are ignored.
// The store runs the same aggregation in SQL; this form serves callers that already hold the rows.
func AggregateDonations(donations []domain.Donation) domain.LedgerTotals {
	totals := domain.LedgerTotals{HelpAmount: decimal.Zero, StopAmount: decimal.Zero}
	for _, d := range donations {
		if d.Status != domain.DonationPaid {
			continue
		}
		switch d.DonationType {
		case domain.DonationStop:
			totals.StopAmount = totals.StopAmount.Add(d.Amount)
			totals.StopCount++
		default:
			totals.HelpAmount = totals.HelpAmount.Add(d.Amount)
			totals.HelpCount++
		}
	}
	return totals
}

// CurrentAmount derives a project's funded amount from its ledger totals:
// help minus stop, floored at zero.
func CurrentAmount(totals domain.LedgerTotals) decimal.Decimal {
	net := totals.HelpAmount.Sub(totals.StopAmount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
