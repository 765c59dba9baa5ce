package cloudpayments

import (
	"time"
)

const (
	// DefaultBaseURL is the CloudPayments API root
	DefaultBaseURL = "https://api.cloudpayments.ru"

	// tokensAuthPath is the two-step (authorize, then capture) token payment endpoint
	tokensAuthPath = "/payments/tokens/auth"
)

// GatewayConfig contains configuration for the CloudPayments adapter
type GatewayConfig struct {
	// API root, overridable for a local stub
	BaseURL string

	// Bound on one outbound call, including reading the body
	Timeout time.Duration

	// TLS verification is on unless explicitly disabled
	InsecureSkipVerify bool

	// Exchange log: enabled by TestMode or SendLog, written under LogDir
	TestMode bool
	SendLog  bool
	LogDir   string

	// Circuit breaker settings
	Breaker CircuitBreakerConfig
}

// DefaultGatewayConfig returns the production configuration
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		BaseURL:            DefaultBaseURL,
		Timeout:            30 * time.Second,
		InsecureSkipVerify: false,
		LogDir:             "logs",
		Breaker:            DefaultCircuitBreakerConfig(),
	}
}

// TokensAuthURL returns the full authorization endpoint
func (c *GatewayConfig) TokensAuthURL() string {
	return c.BaseURL + tokensAuthPath
}

// ExchangeLogEnabled reports whether raw request/response pairs are written out
func (c *GatewayConfig) ExchangeLogEnabled() bool {
	return c.TestMode || c.SendLog
}
