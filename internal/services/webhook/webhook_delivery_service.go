package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	adapterports "github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
	"github.com/kevin07696/cloudpayments-service/pkg/observability"
)

// maxResponseBytes bounds how much of the host reply is read
const maxResponseBytes = 64 << 10

// Config configures delivery to the host application
type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// WebhookDeliveryService delivers business events to the host over HTTP
type WebhookDeliveryService struct {
	config     Config
	httpClient adapterports.HTTPClient
	logger     *zap.Logger
	now        func() time.Time
}

var _ ports.EventDispatcher = (*WebhookDeliveryService)(nil)

// WebhookEvent represents an event to be sent via webhook
type WebhookEvent struct {
	EventType domain.EventType          `json:"event_type"`
	Data      *domain.TransactionRecord `json:"data"`
	Timestamp time.Time                 `json:"timestamp"`
}

// NewWebhookDeliveryService creates a new webhook delivery service
func NewWebhookDeliveryService(config Config, httpClient adapterports.HTTPClient, logger *zap.Logger) *WebhookDeliveryService {
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &WebhookDeliveryService{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Dispatch posts the event and returns the host's verdict.
// A host that answers 2xx with an "error" field rejects the payment.
func (s *WebhookDeliveryService) Dispatch(ctx context.Context, eventType domain.EventType, record *domain.TransactionRecord) (*ports.DispatchResult, error) {
	start := time.Now()
	event := &WebhookEvent{
		EventType: eventType,
		Data:      record,
		Timestamp: s.now().UTC(),
	}

	s.logger.Info("Delivering webhook event",
		zap.String("event_type", string(eventType)),
		zap.String("order_id", record.OrderID),
		zap.String("transaction_id", record.NativeID),
	)

	result, err := s.deliver(ctx, event)

	status := "success"
	switch {
	case err != nil:
		status = "failed"
	case result.Error != "":
		status = "rejected"
	}
	observability.RecordEventDelivery(string(eventType), status, time.Since(start).Seconds())

	if err != nil {
		s.logger.Error("Failed to deliver webhook",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
			zap.String("webhook_url", s.config.URL),
		)
		return nil, err
	}

	if result.Error != "" {
		s.logger.Warn("Host rejected payment event",
			zap.String("event_type", string(eventType)),
			zap.String("order_id", record.OrderID),
			zap.String("error", result.Error),
		)
	}
	return result, nil
}

func (s *WebhookDeliveryService) deliver(ctx context.Context, event *WebhookEvent) (*ports.DispatchResult, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	signature := s.generateSignature(payload, s.config.Secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewTransportError(s.config.URL, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event-Type", string(event.EventType))
	req.Header.Set("X-Webhook-Timestamp", event.Timestamp.Format(time.RFC3339))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(s.config.URL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewTransportError(s.config.URL,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	result := &ports.DispatchResult{}
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		// a 2xx reply that is not JSON carries no error field
		s.logger.Debug("Webhook reply is not JSON, treating as accepted",
			zap.Int("http_status", resp.StatusCode),
		)
		return &ports.DispatchResult{}, nil
	}
	return result, nil
}

// generateSignature creates HMAC-SHA256 signature of the payload
func (s *WebhookDeliveryService) generateSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
