package api

import (
	"net/http"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
)

type donationMutationResponse struct {
	Message  string           `json:"message"`
	Donation *domain.Donation `json:"donate"`
}

type projectDonationsResponse struct {
	Project   *domain.Project   `json:"project"`
	Donations []domain.Donation `json:"donates"`
}

// ListDonationsHandler returns every donation.
func (h *Handlers) ListDonationsHandler(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.ListDonations(r.Context())
	if err != nil {
		h.respondWithServiceError(w, "list_donations", err)
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}
	respondWithJSON(w, http.StatusOK, donations)
}

// ListProjectDonationsHandler returns a project with its donations.
func (h *Handlers) ListProjectDonationsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "project not found")
		return
	}
	project, donations, err := h.service.ListProjectDonations(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "list_project_donations", err)
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}
	respondWithJSON(w, http.StatusOK, projectDonationsResponse{Project: project, Donations: donations})
}

// CreateDonationHandler records a donation directly.
func (h *Handlers) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	receipt, err := h.service.CreateDonation(r.Context(), req)
	if err != nil {
		h.respondWithServiceError(w, "create_donation", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, receipt)
}

// GetDonationHandler returns one donation.
func (h *Handlers) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "donation not found")
		return
	}
	donation, err := h.service.GetDonation(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "get_donation", err)
		return
	}
	respondWithJSON(w, http.StatusOK, donation)
}

// UpdateDonationHandler applies a partial donation update.
func (h *Handlers) UpdateDonationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "donation not found")
		return
	}
	var req domain.UpdateDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	donation, err := h.service.UpdateDonation(r.Context(), id, req)
	if err != nil {
		h.respondWithServiceError(w, "update_donation", err)
		return
	}
	respondWithJSON(w, http.StatusOK, donationMutationResponse{Message: "Doação atualizada com sucesso!", Donation: donation})
}

// DeleteDonationHandler removes a donation.
func (h *Handlers) DeleteDonationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "donation not found")
		return
	}
	if err := h.service.DeleteDonation(r.Context(), id); err != nil {
		h.respondWithServiceError(w, "delete_donation", err)
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: "Doação excluída com sucesso!"})
}

// CreatePixDonationHandler opens a PIX charge and records a pending donation.
func (h *Handlers) CreatePixDonationHandler(w http.ResponseWriter, r *http.Request) {
	h.createPaymentDonation(w, r, domain.BillingPix)
}

// CreateBoletoDonationHandler opens a boleto charge and records a pending donation.
func (h *Handlers) CreateBoletoDonationHandler(w http.ResponseWriter, r *http.Request) {
	h.createPaymentDonation(w, r, domain.BillingBoleto)
}

func (h *Handlers) createPaymentDonation(w http.ResponseWriter, r *http.Request, billing domain.BillingType) {
	var req domain.PaymentDonationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := h.service.CreatePaymentDonation(r.Context(), billing, req)
	if err != nil {
		h.respondWithServiceError(w, "create_"+string(billing)+"_donation", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

// DonationStatusHandler reconciles a donation with its gateway charge.
func (h *Handlers) DonationStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusNotFound, "donation not found")
		return
	}
	result, err := h.service.ReconcileDonation(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, "donation_status", err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
