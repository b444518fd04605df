package ports

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when a secret path does not resolve
var ErrSecretNotFound = errors.New("secret not found")

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value    string
	Version  string
	Metadata map[string]string
}

// SecretStore resolves credentials such as the gateway API key and the cron secret.
// Path format depends on the backend:
//   - AWS: "subscription-engine/gateway/api-key" or a full ARN
//   - Vault: "subscription-engine/gateway" under the configured KV mount
//   - Local: a file path relative to the base directory
type SecretStore interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
