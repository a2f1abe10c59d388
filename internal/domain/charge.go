package domain

import "github.com/shopspring/decimal"

// Charge is the API view of a gateway payment linked to a donation.
type Charge struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Value             decimal.Decimal `json:"value"`
	BillingType       string          `json:"billing_type,omitempty"`
	CustomerID        string          `json:"customer_id,omitempty"`
	DueDate           string          `json:"due_date,omitempty"`
	ExternalReference string          `json:"external_reference,omitempty"`
	InvoiceURL        *string         `json:"invoice_url,omitempty"`
	BankSlipURL       *string         `json:"bank_slip_url,omitempty"`
	PixPayload        *string         `json:"pix_payload,omitempty"`
	PixQRCode         *string         `json:"pix_qr_code,omitempty"`
}

// WebhookEvent is the payload the gateway posts to the webhook endpoint.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payment *WebhookCharge `json:"payment"`
}

// WebhookCharge is the subset of the charge carried in webhook payloads.
type WebhookCharge struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Value    decimal.Decimal `json:"value"`
	Customer string          `json:"customer"`
}
