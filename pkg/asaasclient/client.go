/**
 * @description
 * This package provides a client for the Asaas payments API. It wraps the
 * handful of endpoints the fundraising service needs: customer registration,
 * charge creation (PIX and boleto), charge lookup and the PIX QR code fetch.
 * It also owns the webhook token check, since the token is issued by Asaas.
 *
 * @dependencies
 * - bytes, context, crypto/subtle, encoding/json, log/slog, net/http: Standard Go libraries.
 * - github.com/shopspring/decimal: charge values are exact decimals.
 */
package asaasclient

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a client for the Asaas API.
type Client struct {
	BaseURL      string
	APIKey       string
	WebhookToken string
	HTTPClient   *http.Client
	// Logger receives warnings about degraded responses. Nil means slog.Default().
	Logger *slog.Logger
}

// NewClient creates a new Asaas API client.
func NewClient(baseURL, apiKey, webhookToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:      strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		APIKey:       strings.TrimSpace(apiKey),
		WebhookToken: webhookToken,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger: slog.Default(),
	}
}

func (c *Client) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// CustomerRequest is the payload for POST /customers.
type CustomerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	CPFCNPJ    string `json:"cpfCnpj"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Customer is the customer resource returned by Asaas.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CPFCNPJ string `json:"cpfCnpj"`
}

// PaymentRequest is the payload for POST /payments.
type PaymentRequest struct {
	Customer          string          `json:"customer"`
	BillingType       string          `json:"billingType"`
	Value             decimal.Decimal `json:"value"`
	DueDate           string          `json:"dueDate"`
	Description       string          `json:"description,omitempty"`
	ExternalReference string          `json:"externalReference,omitempty"`
}

// Payment is the payment (charge) resource returned by Asaas.
type Payment struct {
	ID                string          `json:"id"`
	Customer          string          `json:"customer"`
	Status            string          `json:"status"`
	BillingType       string          `json:"billingType"`
	Value             decimal.Decimal `json:"value"`
	DueDate           string          `json:"dueDate"`
	Description       string          `json:"description"`
	ExternalReference string          `json:"externalReference"`
	InvoiceURL        *string         `json:"invoiceUrl"`
	BankSlipURL       *string         `json:"bankSlipUrl"`
	PixTransaction    *PixQRCode      `json:"pixTransaction,omitempty"`
}

// PixQRCode is the response of GET /payments/{id}/pixQrCode.
type PixQRCode struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
	Errors     []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("asaas api error (status %d): %s - %s", e.StatusCode, e.Errors[0].Code, e.Errors[0].Description)
	}
	return fmt.Sprintf("asaas api error (status %d)", e.StatusCode)
}

// CreateCustomer registers a payer.
func (c *Client) CreateCustomer(ctx context.Context, customer CustomerRequest) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, "create_customer", http.MethodPost, "/customers", customer, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayment creates a charge. For PIX charges the QR code is fetched right
// after creation and attached as PixTransaction; a failure there is logged and
// the charge is still returned.
func (c *Client) CreatePayment(ctx context.Context, payment PaymentRequest) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, "create_payment", http.MethodPost, "/payments", payment, &out); err != nil {
		return nil, err
	}

	if strings.EqualFold(payment.BillingType, "PIX") && out.PixTransaction == nil && out.ID != "" {
		qr, err := c.GetPixQRCode(ctx, out.ID)
		if err != nil {
			c.log().Warn("pix qr code fetch failed; returning charge without it", "op", "pix_qr_code", "payment_id", out.ID, "error", err)
		} else {
			out.PixTransaction = qr
		}
	}

	return &out, nil
}

// GetPayment fetches a charge by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var out Payment
	if err := c.do(ctx, "get_payment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPixQRCode fetches the PIX copy-and-paste payload and QR image of a charge.
func (c *Client) GetPixQRCode(ctx context.Context, paymentID string) (*PixQRCode, error) {
	var out PixQRCode
	if err := c.do(ctx, "get_pix_qr_code", http.MethodGet, "/payments/"+url.PathEscape(paymentID)+"/pixQrCode", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateWebhookToken compares the `asaas-access-token` header against the configured token.
// An unconfigured token rejects everything.
func (c *Client) ValidateWebhookToken(token string) bool {
	if c.WebhookToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.WebhookToken)) == 1
}

func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", c.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		if err := json.Unmarshal(bodyBytes, apiErr); err != nil {
			c.log().Warn("non-2xx response with unparsable error body", "op", op, "status", resp.StatusCode)
		} else {
			c.log().Warn("non-2xx response", "op", op, "status", resp.StatusCode, "errors", len(apiErr.Errors))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
