// Package provider defines the OAuth provider adapter contract and registry.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/myriagon/credvault/internal/domain/credential"
)

// TokenSet is the normalized token payload returned by a provider exchange.
// Keys follow the provider's wire names plus an obtained_at stamp added at
// normalization time.
type TokenSet map[string]any

// AccessToken returns the access_token value, empty when absent.
func (t TokenSet) AccessToken() string { return t.str("access_token") }

// RefreshToken returns the refresh_token value, empty when absent.
func (t TokenSet) RefreshToken() string { return t.str("refresh_token") }

// TokenType returns the token_type value, defaulting to Bearer.
func (t TokenSet) TokenType() string {
	if v := t.str("token_type"); v != "" {
		return v
	}
	return "Bearer"
}

// ExpiresIn returns the expires_in lifetime when present.
func (t TokenSet) ExpiresIn() (time.Duration, bool) {
	switch v := t["expires_in"].(type) {
	case float64:
		return time.Duration(v) * time.Second, true
	case int64:
		return time.Duration(v) * time.Second, true
	case int:
		return time.Duration(v) * time.Second, true
	}
	return 0, false
}

// ObtainedAt returns the obtained_at stamp when present.
func (t TokenSet) ObtainedAt() (time.Time, bool) {
	s := t.str("obtained_at")
	if s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Stamp records when the tokens were obtained.
func (t TokenSet) Stamp(now time.Time) {
	t["obtained_at"] = now.UTC().Format(time.RFC3339)
}

// DecodeTokens parses a JSON token response body into a TokenSet.
func DecodeTokens(body []byte) (TokenSet, error) {
	var t TokenSet
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return t, nil
}

func (t TokenSet) str(key string) string {
	if v, ok := t[key].(string); ok {
		return v
	}
	return ""
}

// Config carries the client registration an adapter needs.
type Config struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// Adapter is one OAuth provider integration.
type Adapter interface {
	// Name is the registry key, e.g. "google".
	Name() string
	// Services lists the vault services this adapter connects. Google fans
	// out to gmail, google_sheets and google_drive from a single grant.
	Services() []credential.Service
	// Scopes lists the OAuth scopes requested at authorization.
	Scopes() []string
	// AuthorizationURL builds the provider consent URL for the given state.
	AuthorizationURL(state, redirectURI string) (string, error)
	// ExchangeCode redeems an authorization code for a normalized token set.
	ExchangeCode(ctx context.Context, code, redirectURI string) (TokenSet, error)
	// MirrorPayload shapes the decrypted tokens for the external engine's
	// credential store, returning its credential type and data map.
	MirrorPayload(service credential.Service, tokens TokenSet) (credType string, data map[string]any)
	// TokensExpire reports whether this provider's access tokens expire.
	TokensExpire() bool
}

// Refresher is implemented by adapters whose tokens can be refreshed.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}
