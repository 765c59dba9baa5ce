package cloudpayments

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/domain"
	pkghttp "github.com/kevin07696/cloudpayments-service/pkg/http"
	"github.com/kevin07696/cloudpayments-service/pkg/observability"
)

// tokensAuthAdapter implements the PaymentGatewayAdapter port
type tokensAuthAdapter struct {
	config         *GatewayConfig
	client         *resty.Client
	logger         *zap.Logger
	exchangeLog    *zap.Logger
	circuitBreaker *CircuitBreaker
}

// NewPaymentGatewayAdapter creates the tokens/auth adapter.
// exchangeLog may be nil; it is only written when the config enables it.
func NewPaymentGatewayAdapter(config *GatewayConfig, logger *zap.Logger, exchangeLog *zap.Logger) ports.PaymentGatewayAdapter {
	if config == nil {
		config = DefaultGatewayConfig()
	}

	httpCfg := pkghttp.GatewayClientConfig()
	httpCfg.InsecureSkipVerify = config.InsecureSkipVerify
	if config.Timeout > 0 && config.Timeout < httpCfg.ResponseHeaderTimeout {
		httpCfg.ResponseHeaderTimeout = config.Timeout
	}

	client := resty.NewWithClient(pkghttp.NewHTTPClient(httpCfg, config.Timeout)).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	a := &tokensAuthAdapter{
		config:      config,
		client:      client,
		logger:      logger,
		exchangeLog: exchangeLog,
	}
	a.circuitBreaker = NewCircuitBreaker(config.Breaker, a.onCircuitStateChange)
	return a
}

// Authorize sends the tokens/auth request.
// The gateway is called at most once; there is no retry.
func (a *tokensAuthAdapter) Authorize(ctx context.Context, req *ports.AuthorizationRequest) (*ports.GatewayResponse, error) {
	url := a.config.TokensAuthURL()

	a.logger.Info("Sending CloudPayments authorization",
		zap.String("invoice_id", req.InvoiceID),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency),
	)

	start := time.Now()
	var httpResp *resty.Response
	err := a.circuitBreaker.Call(func() error {
		var callErr error
		httpResp, callErr = a.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			Post(url)
		return callErr
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		result := "transport_error"
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyProbes) {
			result = "circuit_open"
		}
		observability.RecordGatewayRequest(result, elapsed)

		a.logger.Error("CloudPayments request failed",
			zap.String("url", url),
			zap.String("invoice_id", req.InvoiceID),
			zap.Error(err),
		)
		if a.config.ExchangeLogEnabled() {
			logExchange(a.exchangeLog, url, req, 0, []byte(err.Error()))
		}
		return nil, domain.NewTransportError(url, err)
	}
	observability.RecordGatewayRequest("ok", elapsed)

	raw := httpResp.Body()
	resp := ParseResponse(raw)
	resp.HTTPStatus = httpResp.StatusCode()

	if a.config.ExchangeLogEnabled() {
		logExchange(a.exchangeLog, url, req, resp.HTTPStatus, raw)
	}

	a.logger.Info("CloudPayments authorization answered",
		zap.String("invoice_id", req.InvoiceID),
		zap.Int("http_status", resp.HTTPStatus),
		zap.Bool("decoded", resp.Decoded),
		zap.Bool("rejected", resp.Rejected),
		zap.String("payment_id", resp.PaymentID),
		zap.String("status", resp.Status),
	)

	return resp, nil
}

func (a *tokensAuthAdapter) onCircuitStateChange(from, to CircuitState) {
	observability.SetGatewayCircuitState(int(to))
	a.logger.Warn("CloudPayments circuit breaker state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
