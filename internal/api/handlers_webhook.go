package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/shopspring/decimal"
)

const webhookTokenHeader = "asaas-access-token"

// maxWebhookBody caps the payload read from the gateway.
const maxWebhookBody = 1 << 20

// AsaasWebhookHandler receives payment notifications from the gateway.
// Unusable payloads are acknowledged so the gateway stops retrying them.
func (h *Handlers) AsaasWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateWebhookToken(r.Header.Get(webhookTokenHeader)) {
		h.logger.Warn("webhook rejected: invalid token", "endpoint", "asaas_webhook", "remote", clientIP(r))
		respondWithError(w, http.StatusUnauthorized, "Token inválido")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	r.Body.Close()
	if err != nil {
		h.logger.Warn("webhook body unreadable; acknowledging", "endpoint", "asaas_webhook", "error", err)
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("webhook payload malformed; acknowledging", "endpoint", "asaas_webhook", "error", err)
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}

	if err := h.service.ProcessWebhook(r.Context(), event); err != nil {
		h.logger.Error("webhook processing failed", "endpoint", "asaas_webhook", "event", event.Event, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// AsaasTestWebhookHandler feeds a synthetic confirmation through the webhook
// pipeline. Only available in the local environment.
func (h *Handlers) AsaasTestWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if !h.localEnv {
		respondWithError(w, http.StatusForbidden, "Não disponível em produção")
		return
	}

	event := domain.WebhookEvent{
		Event: "PAYMENT_CONFIRMED",
		Payment: &domain.WebhookCharge{
			ID:       "pay_test_123",
			Status:   "CONFIRMED",
			Value:    decimal.NewFromInt(100),
			Customer: "cus_test_123",
		},
	}
	if err := h.service.ProcessWebhook(r.Context(), event); err != nil {
		h.logger.Error("test webhook processing failed", "endpoint", "asaas_webhook_test", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: "Webhook de teste processado"})
}
