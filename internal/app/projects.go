package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func validateProject(p *domain.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(p.Name) > 255 {
		return domain.NewValidationError("name", "must be at most 255 characters")
	}
	if strings.TrimSpace(p.Description) == "" {
		return domain.NewValidationError("description", "is required")
	}
	if !p.Budget.IsPositive() {
		return domain.NewValidationError("budget", "must be greater than zero")
	}
	if p.StartDate.IsZero() {
		return domain.NewValidationError("start_date", "is required")
	}
	if p.EndDate.IsZero() {
		return domain.NewValidationError("end_date", "is required")
	}
	if !p.EndDate.After(p.StartDate) {
		return domain.NewValidationError("end_date", "must be after start_date")
	}
	if strings.TrimSpace(p.OwnerName) == "" {
		return domain.NewValidationError("owner_name", "is required")
	}
	if utf8.RuneCountInString(p.OwnerName) > 255 {
		return domain.NewValidationError("owner_name", "must be at most 255 characters")
	}
	if strings.TrimSpace(p.Cellphone) == "" {
		return domain.NewValidationError("cellphone", "is required")
	}
	if utf8.RuneCountInString(p.Cellphone) > 20 {
		return domain.NewValidationError("cellphone", "must be at most 20 characters")
	}
	return nil
}

// CreateProject validates and stores a new project. Its category is derived from the budget.
func (s *Service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	project := &domain.Project{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Budget:        req.Budget,
		CurrentAmount: decimal.Zero,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		OwnerName:     strings.TrimSpace(req.OwnerName),
		Cellphone:     strings.TrimSpace(req.Cellphone),
		Status:        strings.TrimSpace(req.Status),
	}
	if project.Status == "" {
		project.Status = domain.ProjectStatusActive
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}
	project.Category = ComputeCategory(project.Budget)

	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "budget", project.Budget.StringFixed(2), "category", project.Category)
	return s.decorate(project), nil
}

// GetProject returns a single project.
func (s *Service) GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	return s.findProject(ctx, projectID)
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		s.decorate(&projects[i])
	}
	return projects, nil
}

// UpdateProject applies a partial update. A budget change reclassifies the project.
func (s *Service) UpdateProject(ctx context.Context, projectID uuid.UUID, req domain.UpdateProjectRequest) (*domain.Project, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Budget != nil {
		project.Budget = *req.Budget
	}
	if req.StartDate != nil {
		project.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = *req.EndDate
	}
	if req.OwnerName != nil {
		project.OwnerName = strings.TrimSpace(*req.OwnerName)
	}
	if req.Cellphone != nil {
		project.Cellphone = strings.TrimSpace(*req.Cellphone)
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		project.Status = strings.TrimSpace(*req.Status)
	}

	if err := validateProject(project); err != nil {
		return nil, err
	}
	if req.Budget != nil {
		project.Category = ComputeCategory(project.Budget)
	}

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return s.decorate(project), nil
}

// DeleteProject removes a project without donations.
func (s *Service) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	if _, err := s.findProject(ctx, projectID); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, projectID)
}

// Aggregate returns the paid-donation ledger totals of a project.
func (s *Service) Aggregate(ctx context.Context, projectID uuid.UUID) (domain.LedgerTotals, error) {
	if _, err := s.findProject(ctx, projectID); err != nil {
		return domain.LedgerTotals{}, err
	}
	return s.repo.AggregatePaidDonations(ctx, projectID)
}

// UpdateCurrentAmount re-derives and persists a project's current amount.
func (s *Service) UpdateCurrentAmount(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	return s.recomputeLedger(ctx, projectID)
}

// Progress reports progress, goal flag and time remaining of a project.
func (s *Service) Progress(ctx context.Context, projectID uuid.UUID) (*domain.ProjectProgress, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	progress := ComputeProgress(project, s.now())
	return &progress, nil
}

// Stats reports the help-versus-stop competition of a project.
func (s *Service) Stats(ctx context.Context, projectID uuid.UUID) (*domain.FundraisingStats, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.AggregatePaidDonations(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stats := ComputeFundraisingStats(s.picker, project.Name, totals)
	return &stats, nil
}

// DailyRanking lists today's paid donations of a project, largest first.
// "Today" is the calendar day in the configured business timezone.
func (s *Service) DailyRanking(ctx context.Context, projectID uuid.UUID) (*domain.DailyRanking, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ranking, err := s.dailyRanking(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ranking.Project = project
	return ranking, nil
}

func (s *Service) dailyRanking(ctx context.Context, projectID uuid.UUID) (*domain.DailyRanking, error) {
	from, to := DayWindow(s.now(), s.loc)
	donations, err := s.repo.ListPaidDonationsBetween(ctx, projectID, from, to)
	if err != nil {
		return nil, err
	}
	ranking := RankDonations(donations, from, to)
	return &ranking, nil
}

// ProjectInfo recomputes the ledger and reports progress with today's ranking.
func (s *Service) ProjectInfo(ctx context.Context, projectID uuid.UUID) (*domain.ProjectInfo, error) {
	project, err := s.UpdateCurrentAmount(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ranking, err := s.dailyRanking(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &domain.ProjectInfo{
		Project:          project,
		ProgressPercent:  ProgressPercentage(project.CurrentAmount, project.Budget),
		TimeRemaining:    TimeRemaining(project.EndDate, now),
		IsGoalReached:    IsGoalReached(project.CurrentAmount, project.Budget),
		DailyRanking:     ranking.Ranking,
		TopDonorToday:    ranking.TopDonor,
		LowestDonorToday: ranking.LowestDonor,
	}, nil
}

// TrollMessagePreview renders the help message a donation of amount would get.
func (s *Service) TrollMessagePreview(ctx context.Context, projectID uuid.UUID, amount decimal.Decimal, donorName string) (*domain.TrollMessagePreview, error) {
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("donate_amount", "must be greater than zero")
	}
	donorName = strings.TrimSpace(donorName)
	if donorName == "" {
		return nil, domain.NewValidationError("donor_name", "is required")
	}
	if utf8.RuneCountInString(donorName) > 255 {
		return nil, domain.NewValidationError("donor_name", "must be at most 255 characters")
	}

	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &domain.TrollMessagePreview{
		Message:      HelpTrollMessage(project.Budget, amount, donorName),
		DonateAmount: amount,
		DonorName:    donorName,
		ProjectName:  project.Name,
	}, nil
}
