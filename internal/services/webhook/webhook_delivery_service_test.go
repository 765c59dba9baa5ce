package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/testutil/fixtures"
	"github.com/kevin07696/cloudpayments-service/internal/testutil/mocks"
)

const testURL = "https://host.example.com/payments/events"

func newTestService(client *mocks.MockHTTPClient) *WebhookDeliveryService {
	s := NewWebhookDeliveryService(Config{URL: testURL, Secret: "hook-secret"}, client, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestDispatch_SignsAndSendsEvent(t *testing.T) {
	client := mocks.NewMockHTTPClient(nil)
	s := newTestService(client)
	record := fixtures.NewTransactionRecord("504", "42")

	result, err := s.Dispatch(context.Background(), domain.EventPaymentReceived, record)
	require.NoError(t, err)
	assert.Empty(t, result.Error)

	require.Len(t, client.Calls, 1)
	req := client.Calls[0]
	body := client.Bodies[0]

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, testURL, req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "payment.received", req.Header.Get("X-Webhook-Event-Type"))
	assert.Equal(t, "2024-03-01T12:00:00Z", req.Header.Get("X-Webhook-Timestamp"))

	mac := hmac.New(sha256.New, []byte("hook-secret"))
	mac.Write(body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Header.Get("X-Webhook-Signature"))

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "payment.received", sent["event_type"])
	data := sent["data"].(map[string]interface{})
	assert.Equal(t, "504", data["native_id"])
	assert.Equal(t, "42", data["order_id"])
	assert.Equal(t, "authorization-only", data["type"])
}

func TestDispatch_Replies(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		transportErr  error
		wantErr       bool
		wantRejection string
	}{
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "empty error field", status: http.StatusOK, body: `{"error":""}`},
		{name: "no content", status: http.StatusNoContent, body: ""},
		{name: "not json", status: http.StatusOK, body: "OK"},
		{name: "validation error", status: http.StatusOK, body: `{"error":"order already paid"}`, wantRejection: "order already paid"},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: true},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"x"}`, wantErr: true},
		{name: "connection refused", transportErr: errors.New("connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
				if tt.transportErr != nil {
					return nil, tt.transportErr
				}
				return mocks.JSONResponse(tt.status, tt.body), nil
			})
			s := newTestService(client)

			result, err := s.Dispatch(context.Background(), domain.EventPaymentReceived, fixtures.NewTransactionRecord("1", "42"))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTransport))
				assert.Contains(t, err.Error(), testURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRejection, result.Error)
		})
	}
}

func TestNewWebhookDeliveryService_DefaultClient(t *testing.T) {
	s := NewWebhookDeliveryService(Config{URL: testURL, Timeout: 3 * time.Second}, nil, zap.NewNop())
	c, ok := s.httpClient.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, c.Timeout)
}
