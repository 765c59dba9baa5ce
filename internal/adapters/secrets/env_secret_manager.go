package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

// envSecretManager reads secrets from process environment variables.
// The path is upper-cased and non-alphanumerics become underscores,
// so "cloudpayments/api-secret" reads CLOUDPAYMENTS_API_SECRET.
type envSecretManager struct {
	mu        sync.RWMutex
	overrides map[string]string
	lookup    func(string) (string, bool)
	logger    *zap.Logger
}

// NewEnvSecretManager creates the default secret backend
func NewEnvSecretManager(logger *zap.Logger) ports.SecretManagerAdapter {
	return &envSecretManager{
		overrides: make(map[string]string),
		lookup:    os.LookupEnv,
		logger:    logger,
	}
}

// EnvKey converts a secret path into its environment variable name
func EnvKey(path string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, path)
}

func (m *envSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	key := EnvKey(path)

	m.mu.RLock()
	value, ok := m.overrides[key]
	m.mu.RUnlock()

	if !ok {
		value, ok = m.lookup(key)
	}
	if !ok {
		return nil, fmt.Errorf("secret not found: %s (env %s)", path, key)
	}

	return &ports.Secret{
		Value:    value,
		Version:  "env",
		Metadata: map[string]string{"env": key},
	}, nil
}

// PutSecret only affects this process; it never writes to the real environment.
func (m *envSecretManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	key := EnvKey(path)

	m.logger.Warn("Env secret overridden in memory only", zap.String("env", key))

	m.mu.Lock()
	m.overrides[key] = value
	m.mu.Unlock()
	return "env", nil
}
