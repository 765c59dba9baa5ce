package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

// localSecretManager implements SecretManagerAdapter using local files.
// A file holds either a JSON document {"value": ..., "tags": ..., "created_at": ...}
// or the bare secret as text.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

type localSecretFile struct {
	Value     string            `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
}

// NewLocalSecretManager creates a new local filesystem secret manager.
// Meant for development and single-host installs.
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

func (m *localSecretManager) resolve(secretPath string) (string, error) {
	clean := filepath.Clean("/" + secretPath)
	if clean == "/" {
		return "", fmt.Errorf("empty secret path")
	}
	return filepath.Join(m.basePath, clean), nil
}

// GetSecret retrieves a secret from the local filesystem
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Reading secret from filesystem", zap.String("path", secretPath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("secret not found: %s", secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var file localSecretFile
	if err := json.Unmarshal(data, &file); err == nil && file.Value != "" {
		return &ports.Secret{
			Value:     file.Value,
			Version:   "v1",
			Metadata:  file.Tags,
			CreatedAt: file.CreatedAt,
		}, nil
	}

	// plain text; a trailing newline from an editor is not part of the secret
	return &ports.Secret{
		Value:   strings.TrimRight(string(data), "\r\n"),
		Version: "v1",
	}, nil
}

// PutSecret stores a secret as JSON with 0600 permissions
func (m *localSecretManager) PutSecret(ctx context.Context, secretPath, secretValue string, tags map[string]string) (string, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return "", err
	}

	m.logger.Info("Storing secret to filesystem", zap.String("path", secretPath))

	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(localSecretFile{
		Value:     secretValue,
		Tags:      tags,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write secret: %w", err)
	}

	return "v1", nil
}
