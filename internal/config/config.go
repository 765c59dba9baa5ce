package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// Dispatcher modes for the business callback
const (
	DispatcherWebhook = "webhook"
	DispatcherLocal   = "local"
)

// Secret backends
const (
	SecretBackendEnv   = "env"
	SecretBackendLocal = "local"
	SecretBackendAWS   = "aws"
	SecretBackendVault = "vault"
)

// vatRates are the receipt VAT values the gateway accepts; empty means no VAT
var vatRates = map[string]struct{}{
	"": {}, "0": {}, "10": {}, "20": {}, "110": {}, "120": {},
}

// Config holds all application configuration
type Config struct {
	Environment string

	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Secrets  SecretsConfig
	Callback CallbackConfig
	Logger   LoggerConfig
}

// ServerConfig holds the listener configuration
type ServerConfig struct {
	Host        string
	HTTPPort    int
	GRPCPort    int
	MetricsPort int

	// Requests per second per client IP, 0 disables the limiter
	RateLimit float64
	RateBurst int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// RedisConfig holds the callback deduper store. An empty Addr keeps
// deduplication in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GatewayConfig holds CloudPayments configuration
type GatewayConfig struct {
	BaseURL      string
	PublicID     string // Fallback when the secret backend has no public id
	DefaultEmail string

	// InvoiceId components
	AppID      string
	MerchantID string

	// Receipt settings
	TaxationSystem domain.TaxationSystem
	VAT            string

	Timeout            time.Duration
	TestMode           bool
	SendLog            bool
	LogDir             string
	InsecureSkipVerify bool
}

// SecretsConfig selects and configures the secret backend
type SecretsConfig struct {
	Backend string

	APISecretPath string
	PublicIDPath  string

	// Rotation pickup interval, 0 disables the refresh job
	Refresh time.Duration

	// local
	LocalPath string

	// aws
	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	// vault
	VaultAddress    string
	VaultAuthMethod string
	VaultToken      string
	VaultRoleID     string
	VaultSecretID   string
	VaultNamespace  string
	VaultMountPath  string

	CacheTTL time.Duration
}

// CallbackConfig configures what happens after a callback is verified
type CallbackConfig struct {
	Dispatcher     string
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration

	DedupeTTL      time.Duration
	TrustedProxies []string

	// Gateway source networks, empty accepts any caller
	AllowedIPs []string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8081)
	v.SetDefault("GRPC_PORT", 8080)
	v.SetDefault("METRICS_PORT", 9090)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "cloudpayments")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CLOUDPAYMENTS_BASE_URL", "https://api.cloudpayments.ru")
	v.SetDefault("CLOUDPAYMENTS_TAXATION_SYSTEM", 0)
	v.SetDefault("CLOUDPAYMENTS_TIMEOUT", "30s")
	v.SetDefault("CLOUDPAYMENTS_TEST_MODE", false)
	v.SetDefault("CLOUDPAYMENTS_SEND_LOG", false)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("CLOUDPAYMENTS_INSECURE_SKIP_VERIFY", false)

	v.SetDefault("SECRET_BACKEND", SecretBackendEnv)
	v.SetDefault("SECRET_API_SECRET_PATH", "cloudpayments/api-secret")
	v.SetDefault("SECRET_PUBLIC_ID_PATH", "cloudpayments/public-id")
	v.SetDefault("SECRET_REFRESH", "5m")
	v.SetDefault("SECRET_LOCAL_PATH", "./secrets")
	v.SetDefault("SECRET_CACHE_TTL", "5m")
	v.SetDefault("AWS_REGION", "eu-central-1")
	v.SetDefault("VAULT_AUTH_METHOD", "token")
	v.SetDefault("VAULT_MOUNT_PATH", "secret")

	v.SetDefault("CALLBACK_DISPATCHER", DispatcherWebhook)
	v.SetDefault("APP_CALLBACK_TIMEOUT", "10s")
	v.SetDefault("CALLBACK_DEDUPE_TTL", "72h")

	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from a .env file, if present, and the environment
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

// LoadDatabase reads only the database section, for tools that need no gateway settings
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	db := databaseFromViper(v)
	if db.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &db, nil
}

func databaseFromViper(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetInt("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		Database: v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSL_MODE"),
		MaxConns: v.GetInt32("DB_MAX_CONNS"),
		MinConns: v.GetInt32("DB_MIN_CONNS"),
	}
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Server: ServerConfig{
			Host:        v.GetString("SERVER_HOST"),
			HTTPPort:    v.GetInt("HTTP_PORT"),
			GRPCPort:    v.GetInt("GRPC_PORT"),
			MetricsPort: v.GetInt("METRICS_PORT"),
			RateLimit:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateBurst:   v.GetInt("RATE_LIMIT_BURST"),
		},
		Database: databaseFromViper(v),
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Gateway: GatewayConfig{
			BaseURL:            v.GetString("CLOUDPAYMENTS_BASE_URL"),
			PublicID:           v.GetString("CLOUDPAYMENTS_PUBLIC_ID"),
			DefaultEmail:       v.GetString("CLOUDPAYMENTS_DEFAULT_EMAIL"),
			AppID:              v.GetString("CLOUDPAYMENTS_APP_ID"),
			MerchantID:         v.GetString("CLOUDPAYMENTS_MERCHANT_ID"),
			TaxationSystem:     domain.TaxationSystem(v.GetInt("CLOUDPAYMENTS_TAXATION_SYSTEM")),
			VAT:                v.GetString("CLOUDPAYMENTS_VAT"),
			Timeout:            v.GetDuration("CLOUDPAYMENTS_TIMEOUT"),
			TestMode:           v.GetBool("CLOUDPAYMENTS_TEST_MODE"),
			SendLog:            v.GetBool("CLOUDPAYMENTS_SEND_LOG"),
			LogDir:             v.GetString("LOG_DIR"),
			InsecureSkipVerify: v.GetBool("CLOUDPAYMENTS_INSECURE_SKIP_VERIFY"),
		},
		Secrets: SecretsConfig{
			Backend:         strings.ToLower(v.GetString("SECRET_BACKEND")),
			APISecretPath:   v.GetString("SECRET_API_SECRET_PATH"),
			PublicIDPath:    v.GetString("SECRET_PUBLIC_ID_PATH"),
			Refresh:         v.GetDuration("SECRET_REFRESH"),
			LocalPath:       v.GetString("SECRET_LOCAL_PATH"),
			AWSRegion:       v.GetString("AWS_REGION"),
			AWSProfile:      v.GetString("AWS_PROFILE"),
			AWSEndpoint:     v.GetString("AWS_ENDPOINT"),
			VaultAddress:    v.GetString("VAULT_ADDR"),
			VaultAuthMethod: v.GetString("VAULT_AUTH_METHOD"),
			VaultToken:      v.GetString("VAULT_TOKEN"),
			VaultRoleID:     v.GetString("VAULT_ROLE_ID"),
			VaultSecretID:   v.GetString("VAULT_SECRET_ID"),
			VaultNamespace:  v.GetString("VAULT_NAMESPACE"),
			VaultMountPath:  v.GetString("VAULT_MOUNT_PATH"),
			CacheTTL:        v.GetDuration("SECRET_CACHE_TTL"),
		},
		Callback: CallbackConfig{
			Dispatcher:     strings.ToLower(v.GetString("CALLBACK_DISPATCHER")),
			WebhookURL:     v.GetString("APP_CALLBACK_URL"),
			WebhookSecret:  v.GetString("APP_CALLBACK_SECRET"),
			WebhookTimeout: v.GetDuration("APP_CALLBACK_TIMEOUT"),
			DedupeTTL:      v.GetDuration("CALLBACK_DEDUPE_TTL"),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
			AllowedIPs:     splitList(v.GetString("CALLBACK_ALLOWED_IPS")),
		},
		Logger: LoggerConfig{
			Level:       v.GetString("LOG_LEVEL"),
			Development: v.GetString("ENVIRONMENT") != "production",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if err := c.Gateway.Validate(); err != nil {
		return err
	}
	if err := c.Secrets.Validate(); err != nil {
		return err
	}
	return c.Callback.Validate()
}

// Validate checks the gateway section
func (g *GatewayConfig) Validate() error {
	if g.AppID == "" {
		return fmt.Errorf("CLOUDPAYMENTS_APP_ID is required")
	}
	if g.MerchantID == "" {
		return fmt.Errorf("CLOUDPAYMENTS_MERCHANT_ID is required")
	}
	if strings.Contains(g.AppID, "_") || strings.Contains(g.MerchantID, "_") {
		return fmt.Errorf("CLOUDPAYMENTS_APP_ID and CLOUDPAYMENTS_MERCHANT_ID must not contain '_'")
	}
	if len(g.AppID) < 2 {
		return fmt.Errorf("CLOUDPAYMENTS_APP_ID must be at least 2 characters")
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("CLOUDPAYMENTS_TIMEOUT must be positive")
	}
	if err := g.TaxationSystem.Validate(); err != nil {
		return fmt.Errorf("CLOUDPAYMENTS_TAXATION_SYSTEM: %w", err)
	}
	if _, ok := vatRates[g.VAT]; !ok {
		return fmt.Errorf("CLOUDPAYMENTS_VAT %q is not a known rate", g.VAT)
	}
	return nil
}

// Validate checks the secret backend section
func (s *SecretsConfig) Validate() error {
	switch s.Backend {
	case SecretBackendEnv:
	case SecretBackendLocal:
		if s.LocalPath == "" {
			return fmt.Errorf("SECRET_LOCAL_PATH is required")
		}
	case SecretBackendAWS:
		if s.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required")
		}
	case SecretBackendVault:
		if s.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDR is required")
		}
	default:
		return fmt.Errorf("unknown SECRET_BACKEND %q", s.Backend)
	}
	if s.APISecretPath == "" {
		return fmt.Errorf("SECRET_API_SECRET_PATH is required")
	}
	return nil
}

// Validate checks the callback section
func (c *CallbackConfig) Validate() error {
	switch c.Dispatcher {
	case DispatcherWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("APP_CALLBACK_URL is required")
		}
		if c.WebhookSecret == "" {
			return fmt.Errorf("APP_CALLBACK_SECRET is required")
		}
	case DispatcherLocal:
	default:
		return fmt.Errorf("unknown CALLBACK_DISPATCHER %q", c.Dispatcher)
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
