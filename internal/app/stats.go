package app

import (
	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

// HelpStopPercentages splits the paid total between help and stop. Help is
// rounded to two places and stop takes the remainder so the pair sums to 100.
// Both are zero when nothing is paid.
func HelpStopPercentages(help, stop decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	total := help.Add(stop)
	if !total.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	helpPct := help.Div(total).Mul(hundred).Round(2)
	return helpPct, hundred.Sub(helpPct)
}

// StopWins reports whether sabotage strictly outweighs help.
func StopWins(help, stop decimal.Decimal) bool {
	return stop.GreaterThan(help)
}

// ComputeFundraisingStats builds the competitive view of a project from its ledger totals.
func ComputeFundraisingStats(p Picker, projectName string, totals domain.LedgerTotals) domain.FundraisingStats {
	helpPct, stopPct := HelpStopPercentages(totals.HelpAmount, totals.StopAmount)
	stats := domain.FundraisingStats{
		HelpAmount:     totals.HelpAmount,
		StopAmount:     totals.StopAmount,
		TotalAmount:    totals.TotalPaid(),
		HelpPercentage: helpPct,
		StopPercentage: stopPct,
		StopWins:       StopWins(totals.HelpAmount, totals.StopAmount),
		HelpCount:      totals.HelpCount,
		StopCount:      totals.StopCount,
	}
	stats.TrollMessage = StopWinMessage(p, projectName, stats)
	return stats
}
