package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP handler (60s)
//	  checkout / callback pipeline (50s)
//	    CloudPayments tokens/auth call (30s)
//	    host webhook delivery (10s)
//	      database query (2s)
//
// Each layer must finish before its parent gives up.
type TimeoutConfig struct {
	HTTPHandler time.Duration
	Service     time.Duration

	Gateway         time.Duration
	WebhookDelivery time.Duration

	// Audit writes run detached from the request and get their own bound
	Audit time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:     60 * time.Second,
		Service:         50 * time.Second,
		Gateway:         30 * time.Second,
		WebhookDelivery: 10 * time.Second,
		Audit:           2 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:     5 * time.Second,
		Service:         4 * time.Second,
		Gateway:         2 * time.Second,
		WebhookDelivery: 1 * time.Second,
		Audit:           500 * time.Millisecond,
	}
}

// WithGateway replaces the gateway bound, keeping it under Service
func (tc *TimeoutConfig) WithGateway(d time.Duration) *TimeoutConfig {
	c := *tc
	if d > 0 {
		c.Gateway = d
	}
	if c.Service <= c.Gateway {
		c.Service = c.Gateway + 5*time.Second
	}
	if c.HTTPHandler <= c.Service {
		c.HTTPHandler = c.Service + 10*time.Second
	}
	return &c
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// GatewayContext bounds one CloudPayments call
func (tc *TimeoutConfig) GatewayContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Gateway)
}

// WebhookContext bounds one delivery to the host
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.WebhookDelivery)
}
