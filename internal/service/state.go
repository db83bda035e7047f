package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/oauthstate"
	"github.com/myriagon/credvault/internal/port/database"
)

// StateService issues and redeems single-use OAuth state tokens.
type StateService struct {
	store database.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewStateService creates the service. A non-positive ttl falls back to
// oauthstate.DefaultTTL.
func NewStateService(store database.Store, ttl time.Duration) *StateService {
	if ttl <= 0 {
		ttl = oauthstate.DefaultTTL
	}
	return &StateService{store: store, ttl: ttl, now: time.Now}
}

// Issue mints a state token bound to the initiating tenant and persists it.
func (s *StateService) Issue(ctx context.Context, tenantID, userID, svc, redirectURI string, scopes []string) (string, error) {
	token, err := oauthstate.NewToken()
	if err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}

	rec := &oauthstate.Record{
		ID:          uuid.NewString(),
		Token:       token,
		TenantID:    tenantID,
		UserID:      userID,
		Service:     svc,
		RedirectURI: redirectURI,
		Scopes:      scopes,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.store.InsertOAuthState(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a state token exactly once. An unknown or already-used
// token is ErrStateInvalid; a known but stale one is ErrStateExpired. Either
// way the row is gone afterwards. Every consume also sweeps whatever expired
// rows have piled up, so abandoned flows get cleaned between sweeper ticks.
func (s *StateService) Consume(ctx context.Context, token string) (*oauthstate.Record, error) {
	defer func() { _, _ = s.store.DeleteExpiredOAuthStates(ctx) }()

	rec, err := s.store.ConsumeOAuthState(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrStateInvalid
		}
		return nil, err
	}
	if rec.Expired(s.now()) {
		return nil, domain.ErrStateExpired
	}
	return rec, nil
}

// Sweep deletes all expired state rows.
func (s *StateService) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredOAuthStates(ctx)
}
