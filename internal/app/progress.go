package app

import (
	"fmt"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

// ExpiredLabel is reported as time remaining once a project's end date has passed.
const ExpiredLabel = "Expirado"

var hundred = decimal.NewFromInt(100)

// ProgressPercentage is current/budget as a percentage, clamped to [0, 100] and
// rounded to two places. A non-positive budget yields 0.
func ProgressPercentage(current, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() {
		return decimal.Zero
	}
	pct := current.Div(budget).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2)
}

// IsGoalReached reports whether the funded amount covers the budget.
func IsGoalReached(current, budget decimal.Decimal) bool {
	return current.GreaterThanOrEqual(budget)
}

// TimeRemaining renders the time left until end in the coarsest non-zero unit.
func TimeRemaining(end, now time.Time) string {
	if !end.After(now) {
		return ExpiredLabel
	}

	diff := end.Sub(now)
	days := int(diff / (24 * time.Hour))
	hours := int(diff / time.Hour)
	switch {
	case days > 0:
		return fmt.Sprintf("%d dias restantes", days)
	case hours > 0:
		return fmt.Sprintf("%d horas restantes", hours)
	default:
		return fmt.Sprintf("%d minutos restantes", int(diff/time.Minute))
	}
}

// ComputeProgress builds the progress view of a project at now.
func ComputeProgress(project *domain.Project, now time.Time) domain.ProjectProgress {
	return domain.ProjectProgress{
		Percentage:    ProgressPercentage(project.CurrentAmount, project.Budget),
		GoalReached:   IsGoalReached(project.CurrentAmount, project.Budget),
		TimeRemaining: TimeRemaining(project.EndDate, now),
		Expired:       !project.EndDate.After(now),
	}
}
