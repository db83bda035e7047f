// Package database defines the persistence contract for the vault.
package database

import (
	"context"
	"time"

	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/domain/oauthstate"
)

// Store persists credentials and pending OAuth states.
type Store interface {
	Ping(ctx context.Context) error
	Close()

	// UpsertCredential inserts or replaces the credential for the record's
	// (tenant_id, service_name) pair and returns the stored row.
	UpsertCredential(ctx context.Context, rec *credential.Record) (*credential.Record, error)
	GetCredential(ctx context.Context, tenantID string, service credential.Service) (*credential.Record, error)
	ListCredentials(ctx context.Context, tenantID string) ([]*credential.Record, error)
	// UpdateCredentialTokens replaces the encrypted blob after a refresh.
	UpdateCredentialTokens(ctx context.Context, id string, encrypted, nonce []byte, expiresAt time.Time) error
	UpdateCredentialStatus(ctx context.Context, tenantID string, service credential.Service, status credential.Status) error
	SetCredentialMirrorID(ctx context.Context, id, mirrorID string) error

	InsertOAuthState(ctx context.Context, rec *oauthstate.Record) error
	// ConsumeOAuthState atomically deletes and returns the state row for the
	// token. Missing rows return domain.ErrNotFound; expiry is the caller's
	// concern.
	ConsumeOAuthState(ctx context.Context, token string) (*oauthstate.Record, error)
	DeleteExpiredOAuthStates(ctx context.Context) (int64, error)
}
