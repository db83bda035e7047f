package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/database"
	"github.com/myriagon/credvault/internal/port/provider"
)

// DefaultRefreshBuffer is how long before expiry a token counts as expired,
// so callers never receive a token about to die mid-request.
const DefaultRefreshBuffer = 5 * time.Minute

// ResolverService hands out usable access tokens, refreshing behind the
// scenes when a provider supports it. Concurrent refreshes for the same
// credential are not serialized; both succeed upstream and the later write
// wins, which is safe because either token is valid.
type ResolverService struct {
	store     database.Store
	cipher    *credential.Cipher
	providers *Providers
	buffer    time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewResolverService creates the resolver. A non-positive buffer falls back
// to DefaultRefreshBuffer.
func NewResolverService(store database.Store, cipher *credential.Cipher, providers *Providers,
	buffer time.Duration, log *slog.Logger) *ResolverService {
	if buffer <= 0 {
		buffer = DefaultRefreshBuffer
	}
	return &ResolverService{
		store:     store,
		cipher:    cipher,
		providers: providers,
		buffer:    buffer,
		now:       time.Now,
		log:       log,
	}
}

// ResolvedToken is a ready-to-use credential for one outbound call.
type ResolvedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Resolve returns a live token for the tenant's service connection.
func (s *ResolverService) Resolve(ctx context.Context, tenantID string, svc credential.Service) (*ResolvedToken, error) {
	rec, err := s.store.GetCredential(ctx, tenantID, svc)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotConnected
		}
		return nil, err
	}
	if rec.Status != credential.StatusConnected {
		return nil, domain.ErrNotConnected
	}
	if len(rec.EncryptedTokens) == 0 {
		return nil, domain.ErrNoStoredTokens
	}

	tokens, err := s.cipher.Decrypt(rec.EncryptedTokens, rec.Nonce)
	if err != nil {
		return nil, err
	}

	// API keys have no lifecycle; hand them back as-is.
	if rec.Kind == credential.KindAPIKey {
		key, _ := tokens["api_key"].(string)
		return &ResolvedToken{AccessToken: key, TokenType: "api_key"}, nil
	}

	set := provider.TokenSet(tokens)
	adapter, err := s.providers.ForService(svc)
	if err != nil {
		return nil, err
	}
	if !adapter.TokensExpire() {
		return &ResolvedToken{AccessToken: set.AccessToken(), TokenType: set.TokenType()}, nil
	}

	expiresAt := rec.ExpiresAt
	if expiresAt.IsZero() {
		if d, ok := set.ExpiresIn(); ok {
			if obtained, ok := set.ObtainedAt(); ok {
				expiresAt = obtained.Add(d)
			}
		}
	}

	now := s.now()
	if expiresAt.IsZero() || now.Before(expiresAt.Add(-s.buffer)) {
		return &ResolvedToken{AccessToken: set.AccessToken(), TokenType: set.TokenType()}, nil
	}

	refresher, ok := adapter.(provider.Refresher)
	if !ok {
		// Expired with no refresh path wired; the tenant has to reconnect.
		return nil, domain.ErrNoRefreshToken
	}

	refreshToken := set.RefreshToken()
	if refreshToken == "" {
		return nil, domain.ErrNoRefreshToken
	}

	fresh, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, &domain.RefreshError{Service: string(svc), Err: err}
	}
	// Providers usually omit the refresh token from refresh responses.
	if fresh.RefreshToken() == "" {
		fresh["refresh_token"] = refreshToken
	}

	encrypted, nonce, err := s.cipher.Encrypt(fresh)
	if err != nil {
		return nil, err
	}
	var newExpiry time.Time
	if d, ok := fresh.ExpiresIn(); ok {
		newExpiry = now.Add(d)
	}
	if err := s.store.UpdateCredentialTokens(ctx, rec.ID, encrypted, nonce, newExpiry); err != nil {
		// The refreshed token is valid either way; losing the write only
		// means the next resolve refreshes again.
		s.log.Warn("persisting refreshed tokens failed",
			"tenant_id", tenantID, "service", svc, "error", err)
	}

	s.log.Info("access token refreshed", "tenant_id", tenantID, "service", svc)
	return &ResolvedToken{AccessToken: fresh.AccessToken(), TokenType: fresh.TokenType()}, nil
}
