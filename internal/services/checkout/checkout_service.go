// Package checkout turns a host order into a CloudPayments authorization
// and the payment page URL the customer is sent to.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	adapterports "github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
	"github.com/kevin07696/cloudpayments-service/pkg/observability"
)

// Credentials supplies the gateway key pair at call time
type Credentials interface {
	APISecret() string
	PublicID() string
}

// Config holds the merchant settings used to build requests
type Config struct {
	AppID        string
	MerchantID   string
	DefaultEmail string
}

// Result is a successful authorization: the customer is redirected to PaymentURL
type Result struct {
	PaymentURL string
	PaymentID  string
	Status     string
	InvoiceID  domain.InvoiceID
}

// Service builds and sends tokens/auth requests for orders
type Service struct {
	config   Config
	orders   ports.OrderRepository
	contacts ports.ContactRepository
	gateway  adapterports.PaymentGatewayAdapter
	creds    Credentials
	logger   *zap.Logger
}

// NewService creates a new checkout service
func NewService(
	config Config,
	orders ports.OrderRepository,
	contacts ports.ContactRepository,
	gateway adapterports.PaymentGatewayAdapter,
	creds Credentials,
	logger *zap.Logger,
) *Service {
	return &Service{
		config:   config,
		orders:   orders,
		contacts: contacts,
		gateway:  gateway,
		creds:    creds,
		logger:   logger,
	}
}

// BuildRequest maps an order to the gateway payload
func (s *Service) BuildRequest(order *domain.Order, email string) *adapterports.AuthorizationRequest {
	if email == "" {
		email = s.config.DefaultEmail
	}
	return &adapterports.AuthorizationRequest{
		Amount:      domain.MinorUnits(order.Amount),
		Currency:    order.Currency,
		PublicID:    s.creds.PublicID(),
		Token:       s.creds.APISecret(),
		InvoiceID:   domain.NewInvoiceID(s.config.AppID, s.config.MerchantID, order.ID).String(),
		Description: order.PaymentDescription(),
		Email:       email,
	}
}

// Checkout authorizes the order and returns where to send the customer
func (s *Service) Checkout(ctx context.Context, orderID string) (*Result, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.IsCurrencyAllowed(order.Currency) {
		observability.RecordAuthorization("invalid", order.Currency, 0)
		return nil, domain.WrapError(domain.ErrorCodeValidationCurrencyUnsupported, domain.ErrCurrencyUnsupported.Message, nil).
			WithDetail("currency", order.Currency)
	}

	req := s.BuildRequest(order, s.payerEmail(ctx, order))
	invoice := domain.NewInvoiceID(s.config.AppID, s.config.MerchantID, order.ID)

	s.logger.Info("Authorizing order",
		zap.String("order_id", order.ID),
		zap.String("invoice_id", req.InvoiceID),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)

	start := time.Now()
	resp, err := s.gateway.Authorize(ctx, req)
	if err != nil {
		observability.RecordAuthorization("transport_error", req.Currency, 0)
		s.logger.Error("Gateway authorization failed",
			zap.String("invoice_id", req.InvoiceID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.IsError() {
		observability.RecordAuthorization("rejected", req.Currency, 0)
		s.logger.Warn("Gateway rejected authorization",
			zap.String("invoice_id", req.InvoiceID),
			zap.String("error_code", resp.ErrorCode),
			zap.String("details", resp.Details),
		)
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayRejected, "gateway rejected the payment").
			WithDetail("error_code", resp.ErrorCode).
			WithDetail("details", resp.Details)
	}

	if resp.PaymentURL == "" {
		observability.RecordAuthorization("no_redirect", req.Currency, 0)
		s.logger.Warn("Gateway returned no payment URL",
			zap.String("invoice_id", req.InvoiceID),
			zap.Int("http_status", resp.HTTPStatus),
		)
		noRedirect := domain.WrapError(domain.ErrorCodeGatewayNoRedirect, domain.ErrGatewayNoRedirect.Message, nil).
			WithDetail("http_status", resp.HTTPStatus)
		if resp.Details != "" {
			noRedirect.WithDetail("details", resp.Details)
		}
		return nil, noRedirect
	}

	observability.RecordAuthorization("redirect", req.Currency, req.Amount)
	return &Result{
		PaymentURL: resp.PaymentURL,
		PaymentID:  resp.PaymentID,
		Status:     resp.Status,
		InvoiceID:  invoice,
	}, nil
}

// payerEmail returns the contact email, or "" so the default applies
func (s *Service) payerEmail(ctx context.Context, order *domain.Order) string {
	if order.ContactID == "" || s.contacts == nil {
		return ""
	}
	contact, err := s.contacts.GetByID(ctx, order.ContactID)
	if err != nil {
		if !errors.Is(err, domain.ErrContactNotFound) {
			s.logger.Warn("Contact lookup failed, using default email",
				zap.String("contact_id", order.ContactID),
				zap.Error(err),
			)
		}
		return ""
	}
	return strings.TrimSpace(contact.Email)
}
