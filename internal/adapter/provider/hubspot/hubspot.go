// Package hubspot implements the HubSpot OAuth adapter.
package hubspot

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
	provider.Register("hubspot", func(cfg provider.Config) (provider.Adapter, error) {
		return New(cfg), nil
	})
}

var scopes = []string{
	"crm.objects.contacts.write",
	"crm.objects.contacts.read",
	"crm.objects.deals.read",
	"crm.objects.deals.write",
}

// Adapter exchanges HubSpot OAuth codes. HubSpot access tokens expire, but
// refresh is not wired for it; callers reconnect instead.
type Adapter struct {
	AuthURL  string
	TokenURL string

	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func New(cfg provider.Config) *Adapter {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Adapter{
		AuthURL:      "https://app.hubspot.com/oauth/authorize",
		TokenURL:     "https://api.hubapi.com/oauth/v1/token",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   hc,
	}
}

func (a *Adapter) Name() string { return "hubspot" }

func (a *Adapter) Services() []credential.Service {
	return []credential.Service{credential.ServiceHubSpot}
}

func (a *Adapter) Scopes() []string { return scopes }

func (a *Adapter) TokensExpire() bool { return true }

func (a *Adapter) AuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", state)
	return a.AuthURL + "?" + q.Encode(), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (provider.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hubspot token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ExchangeError{Provider: "hubspot", StatusCode: resp.StatusCode, Body: string(body)}
	}

	tokens, err := provider.DecodeTokens(body)
	if err != nil {
		return nil, fmt.Errorf("decode hubspot tokens: %w", err)
	}
	tokens.Stamp(time.Now())
	return tokens, nil
}

// MirrorPayload spells the tokens out flat; the engine's hubspot credential
// type refreshes on its own with the client registration it is given.
func (a *Adapter) MirrorPayload(_ credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	return "hubspotOAuth2Api", map[string]any{
		"accessToken":  tokens.AccessToken(),
		"refreshToken": tokens.RefreshToken(),
		"clientId":     a.clientID,
		"clientSecret": a.clientSecret,
	}
}
