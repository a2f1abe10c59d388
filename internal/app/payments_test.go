package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/pkg/asaasclient"
	"github.com/google/uuid"
)

func pixRequest(projectID uuid.UUID) domain.PaymentDonationRequest {
	return domain.PaymentDonationRequest{
		ProjectID:  projectID,
		Amount:     dec("25.50"),
		DonorName:  "Maria",
		DonorEmail: "maria@example.com",
		DonorCPF:   "123.456.789-00",
		DonorPhone: "11955554444",
	}
}

func TestCreatePaymentDonationPix(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	gateway := &gatewayStub{}
	publisher := &publisherStub{}
	svc := newTestService(repo, gateway, publisher)

	result, err := svc.CreatePaymentDonation(context.Background(), domain.BillingPix, pixRequest(project.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Message != "Cobrança PIX criada com sucesso!" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.PixCopyPaste == nil || *result.PixCopyPaste != "000201pix" || result.PixCode == nil {
		t.Fatalf("expected pix payload and QR code, got %+v", result)
	}
	if result.BoletoURL != nil {
		t.Fatalf("pix charges have no boleto URL")
	}
	if result.Donation.Status != domain.DonationPending || result.Donation.DonationType != domain.DonationHelp {
		t.Fatalf("expected a pending help donation, got %s/%s", result.Donation.Status, result.Donation.DonationType)
	}
	if result.Donation.PaymentChargeID == nil || *result.Donation.PaymentChargeID != "pay_1" {
		t.Fatalf("donation must be linked to the charge")
	}
	if !gateway.observedCtxDue {
		t.Fatalf("gateway calls must carry a deadline")
	}

	if len(gateway.paymentReqs) != 1 {
		t.Fatalf("expected one charge request, got %d", len(gateway.paymentReqs))
	}
	req := gateway.paymentReqs[0]
	if req.BillingType != "PIX" || req.Customer != "cus_1" {
		t.Fatalf("unexpected charge request %+v", req)
	}
	if req.DueDate != "2025-03-13" {
		t.Fatalf("expected due date three days out, got %s", req.DueDate)
	}
	if req.Description != "Doação para: "+project.Name {
		t.Fatalf("unexpected default description %q", req.Description)
	}
	if !strings.HasPrefix(req.ExternalReference, "donate_"+project.ID.String()+"_") {
		t.Fatalf("unexpected external reference %q", req.ExternalReference)
	}
	if gateway.customerReqs[0].Address != "" {
		t.Fatalf("pix customers carry no address")
	}

	if repo.recomputeCalls != 0 {
		t.Fatalf("pending charges must not touch the ledger")
	}
	if publisher.count(domain.EventDonationCreated) != 1 {
		t.Fatalf("expected donation.created event")
	}
}

func TestCreatePaymentDonationBoletoRequiresAddress(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	gateway := &gatewayStub{}
	svc := newTestService(repo, gateway, &publisherStub{})

	_, err := svc.CreatePaymentDonation(context.Background(), domain.BillingBoleto, pixRequest(project.ID))
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "donor_address" {
		t.Fatalf("expected donor_address validation error, got %v", err)
	}
	if len(gateway.customerReqs) != 0 {
		t.Fatalf("gateway must not be called on invalid input")
	}

	req := pixRequest(project.ID)
	req.DonorAddress = "Rua A, 10"
	req.DonorCity = "São Paulo"
	req.DonorState = "SP"
	req.DonorZipcode = "01000-000"
	req.DonationType = domain.DonationStop
	req.Description = "Sabotagem"

	result, err := svc.CreatePaymentDonation(context.Background(), domain.BillingBoleto, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BoletoURL == nil || *result.BoletoURL != "https://boleto/pay_1" {
		t.Fatalf("expected boleto URL, got %+v", result)
	}
	if result.Message != "Cobrança boleto criada com sucesso!" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if gateway.customerReqs[0].PostalCode != "01000-000" || gateway.paymentReqs[0].Description != "Sabotagem" {
		t.Fatalf("boleto customer or description not forwarded")
	}
	if result.Donation.DonationType != domain.DonationStop {
		t.Fatalf("expected stop donation")
	}
}

func TestCreatePaymentDonationValidation(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	svc := newTestService(repo, &gatewayStub{}, &publisherStub{})

	tests := []struct {
		name   string
		mutate func(r *domain.PaymentDonationRequest)
		field  string
	}{
		{name: "bad email", mutate: func(r *domain.PaymentDonationRequest) { r.DonorEmail = "not-an-email" }, field: "donor_email"},
		{name: "long cpf", mutate: func(r *domain.PaymentDonationRequest) { r.DonorCPF = strings.Repeat("1", 15) }, field: "donor_cpf"},
		{name: "missing phone", mutate: func(r *domain.PaymentDonationRequest) { r.DonorPhone = "" }, field: "donor_phone"},
		{name: "negative amount", mutate: func(r *domain.PaymentDonationRequest) { r.Amount = dec("-1") }, field: "amount"},
		{name: "bad donation type", mutate: func(r *domain.PaymentDonationRequest) { r.DonationType = "both" }, field: "donation_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pixRequest(project.ID)
			tt.mutate(&req)
			_, err := svc.CreatePaymentDonation(context.Background(), domain.BillingPix, req)
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) || validationErr.Field != tt.field {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestCreatePaymentDonationGatewayFailure(t *testing.T) {
	repo := newMemoryRepoStub()
	project := repo.addProject(1000)
	gateway := &gatewayStub{createErr: &asaasclient.APIError{StatusCode: 400, Body: `{"errors":[]}`}}
	svc := newTestService(repo, gateway, &publisherStub{})

	_, err := svc.CreatePaymentDonation(context.Background(), domain.BillingPix, pixRequest(project.ID))
	var gatewayErr *domain.GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if gatewayErr.Op != "create_payment" || gatewayErr.StatusCode != 400 {
		t.Fatalf("unexpected gateway error %+v", gatewayErr)
	}
	if len(repo.donations) != 0 {
		t.Fatalf("no donation may be stored when the charge fails")
	}
}
