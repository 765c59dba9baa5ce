package secrets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

// VaultConfig contains configuration for HashiCorp Vault adapter
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	// Vault namespace (Vault Enterprise)
	Namespace string

	// KV v2 mount path (default: "secret")
	MountPath string

	// Key inside the KV document that holds the value (default: "value")
	ValueKey string

	CacheTTL      time.Duration
	EnableCache   bool
	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for Vault adapter
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		ValueKey:    "value",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

// vaultAdapter implements the SecretManagerAdapter port on a KV v2 engine
type vaultAdapter struct {
	kv     *vault.KVv2
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
	)

	return &vaultAdapter{
		kv:     client.KVv2(cfg.MountPath),
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads the configured value key from a KV v2 document
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	kvSecret, err := a.kv.Get(ctx, path)
	if err != nil {
		a.logger.Error("Failed to read secret from Vault", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	raw, ok := kvSecret.Data[a.config.ValueKey]
	if !ok {
		return nil, fmt.Errorf("secret %s has no %q key", path, a.config.ValueKey)
	}
	value, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("secret %s key %q is not a string", path, a.config.ValueKey)
	}

	secret := &ports.Secret{
		Value:    value,
		Metadata: make(map[string]string),
	}
	if vm := kvSecret.VersionMetadata; vm != nil {
		secret.Version = strconv.Itoa(vm.Version)
		secret.CreatedAt = vm.CreatedTime.Format(time.RFC3339)
	}
	for k, v := range kvSecret.CustomMetadata {
		if s, ok := v.(string); ok {
			secret.Metadata[k] = s
		}
	}

	a.cache.set(path, secret)
	return secret, nil
}

// PutSecret writes a new KV version
func (a *vaultAdapter) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	defer a.cache.invalidate(path)

	kvSecret, err := a.kv.Put(ctx, path, map[string]interface{}{a.config.ValueKey: value})
	if err != nil {
		return "", fmt.Errorf("failed to write secret %s: %w", path, err)
	}

	if len(metadata) > 0 {
		custom := make(map[string]interface{}, len(metadata))
		for k, v := range metadata {
			custom[k] = v
		}
		if err := a.kv.PatchMetadata(ctx, path, vault.KVMetadataPatchInput{CustomMetadata: custom}); err != nil {
			a.logger.Warn("Failed to set secret metadata", zap.String("path", path), zap.Error(err))
		}
	}

	version := ""
	if kvSecret != nil && kvSecret.VersionMetadata != nil {
		version = strconv.Itoa(kvSecret.VersionMetadata.Version)
	}
	a.logger.Info("Secret written to Vault", zap.String("path", path), zap.String("version", version))
	return version, nil
}
