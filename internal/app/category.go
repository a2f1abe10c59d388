package app

import (
	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	smallBudgetCeiling = decimal.NewFromInt(1000)
	smallLowCeiling    = decimal.NewFromInt(300)
	smallMidCeiling    = decimal.NewFromInt(700)
	lowRangeFraction   = decimal.RequireFromString("0.3")
	midRangeFraction   = decimal.RequireFromString("0.7")
)

// CategoryLabels are the display strings shown for each tier.
type CategoryLabels struct {
	Low  string
	Mid  string
	High string
}

// DefaultCategoryLabels returns the labels used when none are configured.
func DefaultCategoryLabels() CategoryLabels {
	return CategoryLabels{Low: "Mão de Vaca", Mid: "Mão de Vaca Médio", High: "Shark Tank"}
}

// Label resolves the display string for a tier.
func (l CategoryLabels) Label(tier domain.Tier) string {
	switch tier {
	case domain.TierLow:
		return l.Low
	case domain.TierMid:
		return l.Mid
	case domain.TierHigh:
		return l.High
	}
	return string(tier)
}

// ComputeCategory classifies a budget into a funding tier.
//
// Budgets up to 1000 use fixed breakpoints. Larger budgets are compared against
// 30% and 70% of themselves, so any positive budget above 1000 lands in the
// high tier.
func ComputeCategory(budget decimal.Decimal) domain.Tier {
	if budget.LessThanOrEqual(smallBudgetCeiling) {
		switch {
		case budget.LessThanOrEqual(smallLowCeiling):
			return domain.TierLow
		case budget.LessThanOrEqual(smallMidCeiling):
			return domain.TierMid
		default:
			return domain.TierHigh
		}
	}

	range1 := budget.Mul(lowRangeFraction)
	range2 := budget.Mul(midRangeFraction)
	switch {
	case budget.LessThanOrEqual(range1):
		return domain.TierLow
	case budget.LessThanOrEqual(range2):
		return domain.TierMid
	default:
		return domain.TierHigh
	}
}
