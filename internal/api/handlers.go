/**
 * @description
 * HTTP handlers for the fundraising API. Handlers decode requests, delegate to
 * the service layer and translate typed domain errors into status codes.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundraisingService is the set of operations the HTTP layer exposes.
type FundraisingService interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID uuid.UUID, req domain.UpdateProjectRequest) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID) error
	ProjectInfo(ctx context.Context, projectID uuid.UUID) (*domain.ProjectInfo, error)
	DailyRanking(ctx context.Context, projectID uuid.UUID) (*domain.DailyRanking, error)
	Stats(ctx context.Context, projectID uuid.UUID) (*domain.FundraisingStats, error)
	TrollMessagePreview(ctx context.Context, projectID uuid.UUID, amount decimal.Decimal, donorName string) (*domain.TrollMessagePreview, error)

	ListDonations(ctx context.Context) ([]domain.Donation, error)
	ListProjectDonations(ctx context.Context, projectID uuid.UUID) (*domain.Project, []domain.Donation, error)
	CreateDonation(ctx context.Context, req domain.CreateDonationRequest) (*domain.DonationReceipt, error)
	GetDonation(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error)
	UpdateDonation(ctx context.Context, donationID uuid.UUID, req domain.UpdateDonationRequest) (*domain.Donation, error)
	DeleteDonation(ctx context.Context, donationID uuid.UUID) error
	CreatePaymentDonation(ctx context.Context, billing domain.BillingType, req domain.PaymentDonationRequest) (*domain.PaymentDonationResult, error)
	ReconcileDonation(ctx context.Context, donationID uuid.UUID) (*domain.ReconcileResult, error)

	ValidateWebhookToken(token string) bool
	ProcessWebhook(ctx context.Context, event domain.WebhookEvent) error
}

// Handlers holds the dependencies for the HTTP handlers.
type Handlers struct {
	service  FundraisingService
	loc      *time.Location
	localEnv bool
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance. loc interprets date-only inputs;
// localEnv enables the synthetic webhook endpoint.
func NewHandlers(service FundraisingService, loc *time.Location, localEnv bool, logger *slog.Logger) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, loc: loc, localEnv: localEnv, logger: logger.With("component", "api")}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithServiceError maps the domain error taxonomy onto HTTP statuses.
func (h *Handlers) respondWithServiceError(w http.ResponseWriter, endpoint string, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var gatewayErr *domain.GatewayError
	var inconsistentErr *domain.InconsistentStateError

	switch {
	case errors.As(err, &validationErr):
		respondWithJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationErr.Error(), Field: validationErr.Field})
	case errors.As(err, &notFoundErr):
		respondWithError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, store.ErrProjectNotFound):
		respondWithError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, store.ErrDonationNotFound):
		respondWithError(w, http.StatusNotFound, "donation not found")
	case errors.As(err, &gatewayErr):
		h.logger.Warn("gateway error", "endpoint", endpoint, "op", gatewayErr.Op, "status", gatewayErr.StatusCode, "error", err)
		respondWithError(w, http.StatusBadGateway, "Erro ao comunicar com o gateway de pagamento: "+gatewayErr.Error())
	case errors.As(err, &inconsistentErr):
		respondWithError(w, http.StatusBadRequest, inconsistentErr.Error())
	case errors.Is(err, domain.ErrProjectHasDonations):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("internal error", "endpoint", endpoint, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Erro interno")
	}
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain dates; values without an
// offset are read in loc.
func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError(field, fmt.Sprintf("invalid date %q", value))
}

type projectPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	OwnerName   string          `json:"owner_name"`
	Cellphone   string          `json:"cellphone"`
	Status      string          `json:"status"`
}

type projectUpdatePayload struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Budget      *decimal.Decimal `json:"budget"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	OwnerName   *string          `json:"owner_name"`
	Cellphone   *string          `json:"cellphone"`
	Status      *string          `json:"status"`
}

type projectMutationResponse struct {
	Message string          `json:"message"`
	Project *domain.Project `json:"project"`
}

// ListProjectsHandler returns every project.
func (h *Handlers) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		h.respondWithServiceError(w, "list_projects", err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	respondWithJSON(w, http.StatusOK, projects)
}

// CreateProjectHandler creates a project.
func (h *Handlers) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var payload projectPayload
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start, err := parseDate("start_date", payload.StartDate, h.loc)
	if err != nil {
		h.respondWithServiceError(w, "create_project", err)
		return
	}
	end, err := parseDate("end_date", payload.EndDate, h.loc)
	if err != nil {
		h.respondWithServiceError(w, "create_project", err)
		return
	}

	project, err := h.service.CreateProject(r.Context(), domain.CreateProjectRequest{
		Name:        payload.Name,
		Description: payload.Description,
		Budget:      payload.Budget,
		StartDate:   start,
		EndDate:     end,
		OwnerName:   payload.OwnerName,
		Cellphone:   payload.Cellphone,
		Status:      payload.Status,
	})
	if err != nil {
		h.respondWithServiceError(w, "create_project", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, projectMutationResponse{Message: "Projeto criado com sucesso!", Project: project})
}

// GetProjectHandler returns one project.
func (h *Handlers) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "get_project", err)
		return
	}
	respondWithJSON(w, http.StatusOK, project)
}

// UpdateProjectHandler applies a partial project update.
func (h *Handlers) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	var payload projectUpdatePayload
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := domain.UpdateProjectRequest{
		Name:        payload.Name,
		Description: payload.Description,
		Budget:      payload.Budget,
		OwnerName:   payload.OwnerName,
		Cellphone:   payload.Cellphone,
		Status:      payload.Status,
	}
	if payload.StartDate != nil {
		start, err := parseDate("start_date", *payload.StartDate, h.loc)
		if err != nil {
			h.respondWithServiceError(w, "update_project", err)
			return
		}
		req.StartDate = &start
	}
	if payload.EndDate != nil {
		end, err := parseDate("end_date", *payload.EndDate, h.loc)
		if err != nil {
			h.respondWithServiceError(w, "update_project", err)
			return
		}
		req.EndDate = &end
	}

	project, err := h.service.UpdateProject(r.Context(), id, req)
	if err != nil {
		h.respondWithServiceError(w, "update_project", err)
		return
	}
	respondWithJSON(w, http.StatusOK, projectMutationResponse{Message: "Projeto atualizado com sucesso!", Project: project})
}

// DeleteProjectHandler deletes a project that has no donations.
func (h *Handlers) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		h.respondWithServiceError(w, "delete_project", err)
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: "Projeto excluído com sucesso!"})
}

// ProjectInfoHandler recomputes the ledger and reports progress with today's ranking.
func (h *Handlers) ProjectInfoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	info, err := h.service.ProjectInfo(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "project_info", err)
		return
	}
	respondWithJSON(w, http.StatusOK, info)
}

// DailyRankingHandler returns today's donor ranking of a project.
func (h *Handlers) DailyRankingHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	ranking, err := h.service.DailyRanking(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "daily_ranking", err)
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

// FundraisingStatsHandler returns the help-versus-stop statistics of a project.
func (h *Handlers) FundraisingStatsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "fundraising_stats", err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

type trollMessagePayload struct {
	DonateAmount decimal.Decimal `json:"donate_amount"`
	DonorName    string          `json:"donor_name"`
}

// TrollMessageHandler previews the message a help donation would receive.
func (h *Handlers) TrollMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	var payload trollMessagePayload
	if err := decodeJSON(r, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	preview, err := h.service.TrollMessagePreview(r.Context(), id, payload.DonateAmount, payload.DonorName)
	if err != nil {
		h.respondWithServiceError(w, "troll_message", err)
		return
	}
	respondWithJSON(w, http.StatusOK, preview)
}
