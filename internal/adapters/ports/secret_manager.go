package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., API secret)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for reading and writing gateway credentials.
// Backends: environment, local filesystem, AWS Secrets Manager, HashiCorp Vault.
// Implementations cache values where the backend is remote.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - AWS: "cloudpayments/{merchant}/api-secret"
	//   - Vault: "cloudpayments/{merchant}" under the KV mount
	//   - Local: file path relative to the base directory
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns the new version identifier
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)
}
