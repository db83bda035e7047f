// Package stripe implements the Stripe Connect OAuth adapter.
package stripe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/provider"
)

func init() {
	provider.Register("stripe", func(cfg provider.Config) (provider.Adapter, error) {
		return New(cfg), nil
	})
}

// Adapter exchanges Stripe Connect OAuth codes. Stripe authenticates the
// exchange with the platform secret key alone; no client_id in the form.
type Adapter struct {
	AuthURL  string
	TokenURL string

	clientID  string
	secretKey string

	httpClient *http.Client
}

func New(cfg provider.Config) *Adapter {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Adapter{
		AuthURL:    "https://connect.stripe.com/oauth/authorize",
		TokenURL:   "https://connect.stripe.com/oauth/token",
		clientID:   cfg.ClientID,
		secretKey:  cfg.ClientSecret,
		httpClient: hc,
	}
}

func (a *Adapter) Name() string { return "stripe" }

func (a *Adapter) Services() []credential.Service {
	return []credential.Service{credential.ServiceStripe}
}

func (a *Adapter) Scopes() []string { return []string{"read_write"} }

func (a *Adapter) TokensExpire() bool { return false }

func (a *Adapter) AuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.clientID)
	q.Set("scope", "read_write")
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return a.AuthURL + "?" + q.Encode(), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, _ string) (provider.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_secret", a.secretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ExchangeError{Provider: "stripe", StatusCode: resp.StatusCode, Body: string(body)}
	}

	tokens, err := provider.DecodeTokens(body)
	if err != nil {
		return nil, fmt.Errorf("decode stripe tokens: %w", err)
	}
	// Older Connect responses carry only the account id. Normalize so
	// downstream consumers always find access_token.
	if tokens.AccessToken() == "" {
		if id, ok := tokens["stripe_user_id"].(string); ok && id != "" {
			tokens["access_token"] = id
		}
	}
	tokens.Stamp(time.Now())
	return tokens, nil
}

func (a *Adapter) MirrorPayload(_ credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	return "stripeApi", map[string]any{
		"apiKey": tokens.AccessToken(),
	}
}
