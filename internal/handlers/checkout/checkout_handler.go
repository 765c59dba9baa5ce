package checkout

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/middleware"
	checkoutsvc "github.com/kevin07696/cloudpayments-service/internal/services/checkout"
	"github.com/kevin07696/cloudpayments-service/pkg/resilience"
)

// Service authorizes an order
type Service interface {
	Checkout(ctx context.Context, orderID string) (*checkoutsvc.Result, error)
}

// Handler serves GET /api/v1/checkout/{order_id}
type Handler struct {
	service  Service
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger
}

// NewHandler creates a new checkout handler
func NewHandler(service Service, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Handler{
		service:  service,
		timeouts: timeouts,
		logger:   logger,
	}
}

var (
	paymentPage = template.Must(template.New("payment").Parse(paymentTemplate))
	errorPage   = template.Must(template.New("error").Parse(errorTemplate))
)

// ServeHTTP renders the auto-submitting payment form, or an error page
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID := r.PathValue("order_id")
	if orderID == "" {
		h.renderError(w, r, http.StatusBadRequest, "Order is not specified", "")
		return
	}

	ctx, cancel := h.timeouts.ServiceContext(r.Context())
	defer cancel()

	result, err := h.service.Checkout(ctx, orderID)
	if err != nil {
		status, message, details := describeError(err)
		h.logger.Warn("Checkout failed",
			zap.String("order_id", orderID),
			zap.Int("status", status),
			zap.Error(err),
		)
		h.renderError(w, r, status, message, details)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	data := map[string]interface{}{
		"FormURL":   result.PaymentURL,
		"InvoiceID": result.InvoiceID.String(),
		"Nonce":     middleware.CSPNonce(r.Context()),
	}
	if err := paymentPage.Execute(w, data); err != nil {
		h.logger.Error("Failed to render payment template", zap.Error(err))
	}
}

// describeError maps a checkout error to status, message and optional details
func describeError(err error) (int, string, string) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, "Payment could not be started", ""
	}

	details, _ := domainErr.Details["details"].(string)
	switch domainErr.Code {
	case domain.ErrorCodeOrderNotFound:
		return http.StatusNotFound, "Order not found", ""
	case domain.ErrorCodeValidationCurrencyUnsupported:
		return http.StatusUnprocessableEntity, "The order currency is not accepted by the payment gateway", ""
	case domain.ErrorCodeGatewayRejected:
		return http.StatusBadGateway, "The payment gateway declined the request", details
	case domain.ErrorCodeGatewayNoRedirect:
		return http.StatusBadGateway, "The payment gateway did not return a payment page", details
	case domain.ErrorCodeTransport:
		return http.StatusBadGateway, "The payment gateway is unavailable, please try again later", ""
	default:
		return http.StatusInternalServerError, "Payment could not be started", ""
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message, details string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	data := map[string]interface{}{
		"Message": message,
		"Details": details,
		"Nonce":   middleware.CSPNonce(r.Context()),
	}
	if err := errorPage.Execute(w, data); err != nil {
		h.logger.Error("Failed to render error template", zap.Error(err))
	}
}

const paymentTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Оплата заказа</title>
    <style nonce="{{.Nonce}}">
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; text-align: center; }
        button { padding: 12px 24px; background-color: #3b82f6; color: white; border: 0; border-radius: 6px; font-weight: 500; }
    </style>
</head>
<body>
    <form id="cloudpayments-form" method="post" action="{{.FormURL}}">
        <input type="hidden" name="InvoiceId" value="{{.InvoiceID}}">
        <p>Переход на страницу оплаты&hellip;</p>
        <button type="submit">Оплатить</button>
    </form>
    <script nonce="{{.Nonce}}">document.getElementById("cloudpayments-form").submit();</script>
</body>
</html>
`

const errorTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Payment Error</title>
    <style nonce="{{.Nonce}}">
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; background-color: #f5f5f5; }
        .error-page { background: white; padding: 40px; border-radius: 8px; text-align: center; }
        h1 { color: #ef4444; }
        .details { background-color: #fef2f2; border: 1px solid #fecaca; padding: 15px; border-radius: 6px; color: #991b1b; }
    </style>
</head>
<body>
    <div class="error-page">
        <h1>Payment Error</h1>
        <p class="message">{{.Message}}</p>
        {{if .Details}}<div class="details">{{.Details}}</div>{{end}}
    </div>
</body>
</html>
`
