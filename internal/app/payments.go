package app

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/devpantoja/vai-me-bancar-back/internal/domain"
	"github.com/devpantoja/vai-me-bancar-back/pkg/asaasclient"
)

type fieldLimit struct {
	field string
	value string
	max   int
}

func requireFields(limits ...fieldLimit) error {
	for _, l := range limits {
		if strings.TrimSpace(l.value) == "" {
			return domain.NewValidationError(l.field, "is required")
		}
		if utf8.RuneCountInString(l.value) > l.max {
			return domain.NewValidationError(l.field, fmt.Sprintf("must be at most %d characters", l.max))
		}
	}
	return nil
}

func validatePaymentDonation(billing domain.BillingType, req *domain.PaymentDonationRequest) error {
	if billing != domain.BillingPix && billing != domain.BillingBoleto {
		return domain.NewValidationError("billing_type", "must be PIX or BOLETO")
	}
	if !req.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if err := requireFields(
		fieldLimit{"donor_name", req.DonorName, 255},
		fieldLimit{"donor_email", req.DonorEmail, 255},
		fieldLimit{"donor_cpf", req.DonorCPF, 14},
		fieldLimit{"donor_phone", req.DonorPhone, 20},
	); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(req.DonorEmail); err != nil {
		return domain.NewValidationError("donor_email", "must be a valid email address")
	}
	if !req.DonationType.Valid() {
		return domain.NewValidationError("donation_type", "must be help or stop")
	}
	if utf8.RuneCountInString(req.Description) > 500 {
		return domain.NewValidationError("description", "must be at most 500 characters")
	}
	if req.DonationMessage != nil && utf8.RuneCountInString(*req.DonationMessage) > 500 {
		return domain.NewValidationError("donation_message", "must be at most 500 characters")
	}
	if billing == domain.BillingBoleto {
		return requireFields(
			fieldLimit{"donor_address", req.DonorAddress, 500},
			fieldLimit{"donor_city", req.DonorCity, 100},
			fieldLimit{"donor_state", req.DonorState, 2},
			fieldLimit{"donor_zipcode", req.DonorZipcode, 10},
		)
	}
	return nil
}

// CreatePaymentDonation registers the payer with the gateway, opens a PIX or
// boleto charge and records a pending donation linked to it. The ledger is not
// touched until the charge is reported paid.
func (s *Service) CreatePaymentDonation(ctx context.Context, billing domain.BillingType, req domain.PaymentDonationRequest) (*domain.PaymentDonationResult, error) {
	req.DonorName = strings.TrimSpace(req.DonorName)
	req.DonorEmail = strings.TrimSpace(req.DonorEmail)
	req.DonorCPF = strings.TrimSpace(req.DonorCPF)
	req.DonorPhone = strings.TrimSpace(req.DonorPhone)
	if req.DonationType == "" {
		req.DonationType = domain.DonationHelp
	}
	if err := validatePaymentDonation(billing, &req); err != nil {
		return nil, err
	}

	project, err := s.findProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, &domain.GatewayError{Op: "create_customer", Err: fmt.Errorf("payment gateway not configured")}
	}

	customerReq := asaasclient.CustomerRequest{
		Name:    req.DonorName,
		Email:   req.DonorEmail,
		CPFCNPJ: req.DonorCPF,
		Phone:   req.DonorPhone,
	}
	if billing == domain.BillingBoleto {
		customerReq.Address = req.DonorAddress
		customerReq.City = req.DonorCity
		customerReq.State = req.DonorState
		customerReq.PostalCode = req.DonorZipcode
	}

	callCtx, cancel := s.gatewayCall(ctx)
	customer, err := s.gateway.CreateCustomer(callCtx, customerReq)
	cancel()
	if err != nil {
		return nil, gatewayError("create_customer", err)
	}

	now := s.now()
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Doação para: " + project.Name
	}
	paymentReq := asaasclient.PaymentRequest{
		Customer:          customer.ID,
		BillingType:       string(billing),
		Value:             req.Amount,
		DueDate:           now.In(s.loc).AddDate(0, 0, s.chargeDueDays).Format("2006-01-02"),
		Description:       description,
		ExternalReference: fmt.Sprintf("donate_%s_%d", project.ID, now.Unix()),
	}

	callCtx, cancel = s.gatewayCall(ctx)
	payment, err := s.gateway.CreatePayment(callCtx, paymentReq)
	cancel()
	if err != nil {
		return nil, gatewayError("create_payment", err)
	}

	customerID := customer.ID
	chargeID := payment.ID
	donation := &domain.Donation{
		ProjectID:         project.ID,
		Amount:            req.Amount,
		Status:            domain.DonationPending,
		DonationType:      req.DonationType,
		DonationMessage:   req.DonationMessage,
		DonorName:         req.DonorName,
		Cellphone:         req.DonorPhone,
		PaymentCustomerID: &customerID,
		PaymentChargeID:   &chargeID,
	}
	if _, err := s.repo.CreateDonation(ctx, donation, CurrentAmount); err != nil {
		return nil, err
	}
	s.logger.Info("payment donation created",
		"donation_id", donation.ID,
		"project_id", project.ID,
		"billing_type", billing,
		"charge_id", chargeID,
		"amount", donation.Amount.StringFixed(2),
	)
	s.publish(ctx, domain.EventDonationCreated, s.donationEvent(donation, ""))

	charge := toCharge(payment)
	result := &domain.PaymentDonationResult{
		Donation: donation,
		Charge:   charge,
	}
	switch billing {
	case domain.BillingPix:
		result.Message = "Cobrança PIX criada com sucesso!"
		result.PixCode = charge.PixQRCode
		result.PixCopyPaste = charge.PixPayload
	case domain.BillingBoleto:
		result.Message = "Cobrança boleto criada com sucesso!"
		result.BoletoURL = charge.BankSlipURL
	}
	return result, nil
}
