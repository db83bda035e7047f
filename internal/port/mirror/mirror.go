// Package mirror defines the contract for mirroring credentials into an
// external workflow engine's credential store.
package mirror

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no mirror endpoint or API key is configured.
var ErrNotConfigured = errors.New("credential mirror not configured")

// Mirror is a one-way, best-effort projection of decrypted credentials into
// the engine. Callers on the OAuth path log failures and move on.
type Mirror interface {
	Create(ctx context.Context, name, credType string, data map[string]any) (id string, err error)
	Update(ctx context.Context, id, name, credType string, data map[string]any) error
}
