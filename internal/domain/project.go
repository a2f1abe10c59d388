/**
 * @description
 * This file defines the project model and the DTOs used to create and update
 * projects through the API.
 *
 * @notes
 * - Money is carried as decimal.Decimal (NUMERIC(12,2) in the database) so
 *   percentages and sums never go through float64.
 * - CurrentAmount and Category are derived fields. They are only written by the
 *   ledger re-aggregation and the category classifier respectively.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the funding-goal-size classification attached to a project.
type Tier string

const (
	TierLow  Tier = "low-tier"
	TierMid  Tier = "mid-tier"
	TierHigh Tier = "high-tier"
)

// ProjectStatusActive is the status assigned to new projects.
const ProjectStatusActive = "active"

// Project maps to the `projects` table.
type Project struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Budget        decimal.Decimal `json:"budget"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	OwnerName     string          `json:"owner_name"`
	Cellphone     string          `json:"cellphone"`
	Category      Tier            `json:"category"`
	CategoryLabel string          `json:"category_label,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateProjectRequest is the DTO for project creation.
type CreateProjectRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	OwnerName   string          `json:"owner_name"`
	Cellphone   string          `json:"cellphone"`
	Status      string          `json:"status"`
}

// UpdateProjectRequest is the DTO for partial project updates. Nil fields are left untouched.
type UpdateProjectRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Budget      *decimal.Decimal `json:"budget"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	OwnerName   *string          `json:"owner_name"`
	Cellphone   *string          `json:"cellphone"`
	Status      *string          `json:"status"`
}

// ProjectProgress is the progress view of a project at a given instant.
type ProjectProgress struct {
	Percentage    decimal.Decimal `json:"progress_percentage"`
	GoalReached   bool            `json:"is_goal_reached"`
	TimeRemaining string          `json:"time_remaining"`
	Expired       bool            `json:"expired"`
}

// ProjectInfo aggregates everything the project info endpoint reports.
type ProjectInfo struct {
	Project          *Project        `json:"project"`
	ProgressPercent  decimal.Decimal `json:"progress_percentage"`
	TimeRemaining    string          `json:"time_remaining"`
	IsGoalReached    bool            `json:"is_goal_reached"`
	DailyRanking     []Donation      `json:"daily_ranking"`
	TopDonorToday    *Donation       `json:"top_donor_today"`
	LowestDonorToday *Donation       `json:"lowest_donor_today"`
}
