package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/middleware"
	checkoutsvc "github.com/kevin07696/cloudpayments-service/internal/services/checkout"
	"github.com/kevin07696/cloudpayments-service/pkg/resilience"
)

type stubService struct {
	result  *checkoutsvc.Result
	err     error
	orderID string
}

func (s *stubService) Checkout(_ context.Context, orderID string) (*checkoutsvc.Result, error) {
	s.orderID = orderID
	return s.result, s.err
}

func newServer(svc Service) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/checkout/{order_id}", NewHandler(svc, resilience.TestTimeoutConfig(), zap.NewNop()))
	return middleware.NewSecurityHeaders(false).Middleware(mux)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_RendersPaymentForm(t *testing.T) {
	svc := &stubService{result: &checkoutsvc.Result{
		PaymentURL: "https://pay.example.test/p/abc",
		PaymentID:  "pid-1",
		Status:     "Created",
		InvoiceID:  domain.NewInvoiceID("app1", "m1", "42"),
	}}

	rec := get(newServer(svc), "/api/v1/checkout/42")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", svc.orderID)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, `action="https://pay.example.test/p/abc"`)
	assert.Contains(t, body, `name="InvoiceId" value="app1_m1_42"`)

	csp := rec.Header().Get("Content-Security-Policy")
	require.NotEmpty(t, csp)
	// the nonce in the page is the one the policy allows
	_, rest, found := strings.Cut(body, `<script nonce="`)
	require.True(t, found)
	nonce, _, _ := strings.Cut(rest, `"`)
	assert.Contains(t, csp, "'nonce-"+nonce+"'")
}

func TestHandler_UnsafeURLIsNeutralized(t *testing.T) {
	svc := &stubService{result: &checkoutsvc.Result{
		PaymentURL: "javascript:alert(1)",
		InvoiceID:  domain.NewInvoiceID("app1", "m1", "42"),
	}}

	rec := get(newServer(svc), "/api/v1/checkout/42")
	assert.NotContains(t, rec.Body.String(), "javascript:alert")
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantDetails string
	}{
		{
			name:        "order not found",
			err:         domain.ErrOrderNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Order not found",
		},
		{
			name:        "currency",
			err:         domain.ErrCurrencyUnsupported,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "currency is not accepted",
		},
		{
			name: "rejected",
			err: domain.NewDomainError(domain.ErrorCodeGatewayRejected, "gateway rejected the payment").
				WithDetail("details", "Invalid amount"),
			wantStatus:  http.StatusBadGateway,
			wantMessage: "declined the request",
			wantDetails: "Invalid amount",
		},
		{
			name: "no redirect",
			err: domain.NewDomainError(domain.ErrorCodeGatewayNoRedirect, "gateway returned no payment URL").
				WithDetail("details", "empty url"),
			wantStatus:  http.StatusBadGateway,
			wantMessage: "did not return a payment page",
			wantDetails: "empty url",
		},
		{
			name:        "transport",
			err:         domain.NewTransportError("https://api.example.test", errors.New("refused")),
			wantStatus:  http.StatusBadGateway,
			wantMessage: "unavailable",
		},
		{
			name:        "unknown",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Payment could not be started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newServer(&stubService{err: tt.err}), "/api/v1/checkout/42")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantMessage)
			if tt.wantDetails != "" {
				assert.Contains(t, rec.Body.String(), `<div class="details">`+tt.wantDetails+`</div>`)
			} else {
				assert.NotContains(t, rec.Body.String(), `<div class="details">`)
			}
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(&stubService{}, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/42", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestHandler_MissingOrderID(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.orderID)
}
