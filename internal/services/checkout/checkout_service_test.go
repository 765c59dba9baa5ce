package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adapterports "github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/services/secret"
	"github.com/kevin07696/cloudpayments-service/internal/testutil/fixtures"
	"github.com/kevin07696/cloudpayments-service/internal/testutil/mocks"
)

type testDeps struct {
	orders   *mocks.MockOrderRepository
	contacts *mocks.MockContactRepository
	gateway  *mocks.MockPaymentGateway
	service  *Service
}

func setup() *testDeps {
	d := &testDeps{
		orders:   new(mocks.MockOrderRepository),
		contacts: new(mocks.MockContactRepository),
		gateway:  new(mocks.MockPaymentGateway),
	}
	d.service = NewService(
		Config{AppID: "shop", MerchantID: "1", DefaultEmail: "orders@shop.example"},
		d.orders, d.contacts, d.gateway,
		secret.NewStaticProvider("api_secret", "pk_test"),
		zap.NewNop(),
	)
	return d
}

func TestBuildRequest(t *testing.T) {
	d := setup()

	t.Run("maps order fields", func(t *testing.T) {
		order := fixtures.NewOrder().WithAmount("12.345").Build()
		req := d.service.BuildRequest(order, "payer@example.com")

		assert.Equal(t, int64(1235), req.Amount)
		assert.Equal(t, "RUB", req.Currency)
		assert.Equal(t, "pk_test", req.PublicID)
		assert.Equal(t, "api_secret", req.Token)
		assert.Equal(t, "shop_1_42", req.InvoiceID)
		assert.Equal(t, "Annual subscription", req.Description)
		assert.Equal(t, "payer@example.com", req.Email)
	})

	t.Run("default email and description", func(t *testing.T) {
		order := fixtures.NewOrder().WithDescription("").Build()
		req := d.service.BuildRequest(order, "")

		assert.Equal(t, "orders@shop.example", req.Email)
		assert.Equal(t, "Order 42", req.Description)
	})

	t.Run("long description truncated by characters", func(t *testing.T) {
		order := fixtures.NewOrder().WithDescription(strings.Repeat("ж", 300)).Build()
		req := d.service.BuildRequest(order, "")

		assert.Equal(t, strings.Repeat("ж", 255), req.Description)
	})
}

func TestCheckout_Redirect(t *testing.T) {
	d := setup()
	d.orders.On("GetByID", mock.Anything, "42").Return(fixtures.NewOrder().Build(), nil)
	d.contacts.On("GetByID", mock.Anything, "7").Return(fixtures.NewContact("7", "payer@example.com"), nil)
	d.gateway.On("Authorize", mock.Anything, mock.MatchedBy(func(r *adapterports.AuthorizationRequest) bool {
		return r.Email == "payer@example.com" && r.Amount == 1050 && r.InvoiceID == "shop_1_42"
	})).Return(&adapterports.GatewayResponse{
		Decoded:    true,
		PaymentURL: "https://pay.example/3ds/abc",
		PaymentID:  "504",
		Status:     "AwaitingAuthentication",
		HTTPStatus: 200,
	}, nil)

	result, err := d.service.Checkout(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/3ds/abc", result.PaymentURL)
	assert.Equal(t, "504", result.PaymentID)
	assert.Equal(t, domain.NewInvoiceID("shop", "1", "42"), result.InvoiceID)
	d.gateway.AssertExpectations(t)
}

func TestCheckout_ContactMissingUsesDefaultEmail(t *testing.T) {
	d := setup()
	d.orders.On("GetByID", mock.Anything, "42").Return(fixtures.NewOrder().Build(), nil)
	d.contacts.On("GetByID", mock.Anything, "7").Return(nil, domain.ErrContactNotFound)
	d.gateway.On("Authorize", mock.Anything, mock.MatchedBy(func(r *adapterports.AuthorizationRequest) bool {
		return r.Email == "orders@shop.example"
	})).Return(&adapterports.GatewayResponse{Decoded: true, PaymentURL: "https://pay.example/x"}, nil)

	_, err := d.service.Checkout(context.Background(), "42")
	require.NoError(t, err)
	d.gateway.AssertExpectations(t)
}

func TestCheckout_Failures(t *testing.T) {
	tests := []struct {
		name     string
		order    *domain.Order
		orderErr error
		resp     *adapterports.GatewayResponse
		gwErr    error
		wantCode domain.ErrorCode
	}{
		{
			name:     "order not found",
			orderErr: domain.ErrOrderNotFound,
			wantCode: domain.ErrorCodeOrderNotFound,
		},
		{
			name:     "unsupported currency",
			order:    fixtures.NewOrder().WithCurrency("JPY").Build(),
			wantCode: domain.ErrorCodeValidationCurrencyUnsupported,
		},
		{
			name:     "transport error",
			order:    fixtures.NewOrder().Build(),
			gwErr:    domain.NewTransportError("https://api.cloudpayments.ru/payments/tokens/auth", errors.New("refused")),
			wantCode: domain.ErrorCodeTransport,
		},
		{
			name:     "rejected",
			order:    fixtures.NewOrder().Build(),
			resp:     &adapterports.GatewayResponse{Decoded: true, Rejected: true, ErrorCode: "5051", Details: "Insufficient funds"},
			wantCode: domain.ErrorCodeGatewayRejected,
		},
		{
			name:     "no redirect url",
			order:    fixtures.NewOrder().Build(),
			resp:     &adapterports.GatewayResponse{Decoded: true, Status: "Authorized", HTTPStatus: 200},
			wantCode: domain.ErrorCodeGatewayNoRedirect,
		},
		{
			name:     "undecodable body",
			order:    fixtures.NewOrder().Build(),
			resp:     &adapterports.GatewayResponse{Raw: []byte("<html>"), HTTPStatus: 502},
			wantCode: domain.ErrorCodeGatewayNoRedirect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setup()
			d.orders.On("GetByID", mock.Anything, "42").Return(tt.order, tt.orderErr)
			d.contacts.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrContactNotFound)
			if tt.resp != nil || tt.gwErr != nil {
				d.gateway.On("Authorize", mock.Anything, mock.Anything).Return(tt.resp, tt.gwErr)
			}

			result, err := d.service.Checkout(context.Background(), "42")
			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.GetErrorCode(err))

			if tt.resp == nil && tt.gwErr == nil {
				d.gateway.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCheckout_RejectionCarriesDetails(t *testing.T) {
	d := setup()
	d.orders.On("GetByID", mock.Anything, "42").Return(fixtures.NewOrder().Build(), nil)
	d.contacts.On("GetByID", mock.Anything, "7").Return(nil, domain.ErrContactNotFound)
	d.gateway.On("Authorize", mock.Anything, mock.Anything).Return(&adapterports.GatewayResponse{
		Decoded: true, Rejected: true, ErrorCode: "5051", Details: "Insufficient funds",
	}, nil)

	_, err := d.service.Checkout(context.Background(), "42")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Insufficient funds", domainErr.Details["details"])
	assert.Equal(t, "5051", domainErr.Details["error_code"])
}
