package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSecurityHeaders(t *testing.T) {
	var seenNonce string
	handler := NewSecurityHeaders(false).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenNonce = CSPNonce(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seenNonce)
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'nonce-"+seenNonce+"'")
	assert.Contains(t, csp, "form-action https:")
	assert.NotContains(t, csp, "http:;")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_Development(t *testing.T) {
	handler := NewSecurityHeaders(true).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Security-Policy"), "form-action https: http:"))
}

func TestSecurityHeaders_NonceIsPerRequest(t *testing.T) {
	var nonces []string
	handler := NewSecurityHeaders(false).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonces = append(nonces, CSPNonce(r.Context()))
	}))
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.NotEqual(t, nonces[0], nonces[1])
}

func TestClientIPResolver(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "direct", remote: "203.0.113.7:5555", want: "203.0.113.7"},
		{name: "untrusted peer ignores xff", remote: "203.0.113.7:5555", headers: map[string]string{"X-Forwarded-For": "1.2.3.4"}, want: "203.0.113.7"},
		{name: "trusted proxy xff", remote: "10.1.2.3:80", headers: map[string]string{"X-Forwarded-For": "130.193.70.192, 10.1.2.3"}, want: "130.193.70.192"},
		{name: "trusted bare ip", remote: "192.0.2.1:80", headers: map[string]string{"X-Real-IP": "185.98.85.109"}, want: "185.98.85.109"},
		{name: "trusted proxy without headers", remote: "10.1.2.3:80", want: "10.1.2.3"},
		{name: "no port", remote: "203.0.113.7", want: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(req))
		})
	}
}

func TestNewClientIPResolver_Invalid(t *testing.T) {
	_, err := NewClientIPResolver([]string{"not-a-cidr/99"})
	assert.Error(t, err)
}

func TestCallbackAllowlist(t *testing.T) {
	allow, err := NewCallbackAllowlist([]string{"130.193.70.192/27", "185.98.85.109"}, nil, zap.NewNop())
	require.NoError(t, err)
	require.True(t, allow.Enabled())

	reached := 0
	handler := allow.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
	}))

	tests := []struct {
		remote     string
		wantStatus int
	}{
		{remote: "130.193.70.200:443", wantStatus: http.StatusOK},
		{remote: "185.98.85.109:443", wantStatus: http.StatusOK},
		{remote: "203.0.113.7:443", wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/cloudpayments/pay", nil)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, tt.wantStatus, rec.Code, tt.remote)
		if tt.wantStatus == http.StatusForbidden {
			assert.Equal(t, `{"code":13}`, rec.Body.String())
		}
	}
	assert.Equal(t, 2, reached)
}

func TestCallbackAllowlist_EmptyPassesThrough(t *testing.T) {
	allow, err := NewCallbackAllowlist(nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, allow.Enabled())

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "203.0.113.7:1"
	allow.Middleware(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
