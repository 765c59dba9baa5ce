package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	callbacksvc "github.com/kevin07696/cloudpayments-service/internal/services/callback"
	"github.com/kevin07696/cloudpayments-service/pkg/resilience"
)

// Response codes understood by CloudPayments. Any non-zero code makes the
// gateway decline the payment.
const (
	CodeAccepted = 0
	CodeRejected = 13
)

// maxBodyBytes bounds a notification body
const maxBodyBytes = 1 << 20

// Processor runs one notification
type Processor interface {
	Process(ctx context.Context, rc *callbacksvc.RequestContext) error
}

// ClientIPFunc resolves the caller address
type ClientIPFunc func(r *http.Request) string

// Response is the acknowledgement body
type Response struct {
	Code int `json:"code"`
}

// Handler serves POST /api/v1/callbacks/cloudpayments/pay
type Handler struct {
	processor Processor
	clientIP  ClientIPFunc
	timeouts  *resilience.TimeoutConfig
	logger    *zap.Logger
}

// NewHandler creates a new callback handler
func NewHandler(processor Processor, clientIP ClientIPFunc, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Handler {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return r.RemoteAddr }
	}
	return &Handler{
		processor: processor,
		clientIP:  clientIP,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// ServeHTTP acknowledges with {"code":0} or rejects with {"code":13}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		h.logger.Warn("Failed to read callback body", zap.Error(err))
		writeResponse(w, http.StatusBadRequest, CodeRejected)
		return
	}
	if len(body) > maxBodyBytes {
		h.logger.Warn("Callback body too large", zap.Int("limit", maxBodyBytes))
		writeResponse(w, http.StatusRequestEntityTooLarge, CodeRejected)
		return
	}

	ctx, cancel := h.timeouts.ServiceContext(r.Context())
	defer cancel()

	rc := callbacksvc.NewRequestContext(h.clientIP(r), r.Header.Clone(), body)
	if err := h.processor.Process(ctx, rc); err != nil {
		writeResponse(w, StatusFor(err), CodeRejected)
		return
	}

	writeResponse(w, http.StatusOK, CodeAccepted)
}

// StatusFor maps a processing error to the HTTP status of the rejection.
// Only a missing secret is a server fault; everything else is refused.
func StatusFor(err error) int {
	if domain.IsDomainError(err, domain.ErrorCodeConfiguration) {
		return http.StatusInternalServerError
	}
	return http.StatusForbidden
}

func writeResponse(w http.ResponseWriter, status, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body, _ := json.Marshal(Response{Code: code})
	_, _ = w.Write(body)
}
