package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
)

// Resolve returns the secret at path, or fallback when path is empty or the store is nil
func Resolve(ctx context.Context, store ports.SecretStore, path, fallback string) (string, error) {
	if store == nil || path == "" {
		return fallback, nil
	}
	secret, err := store.GetSecret(ctx, path)
	if err != nil {
		return "", fmt.Errorf("resolve secret %s: %w", path, err)
	}
	return secret.Value, nil
}
