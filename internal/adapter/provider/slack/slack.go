// Package slack implements the Slack OAuth v2 adapter. Slack bot tokens do
// not expire and are never refreshed.
package slack

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
	provider.Register("slack", func(cfg provider.Config) (provider.Adapter, error) {
		return New(cfg), nil
	})
}

var scopes = []string{
	"chat:write",
	"channels:read",
	"channels:history",
	"groups:read",
	"groups:history",
}

// Adapter exchanges Slack OAuth v2 codes.
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
		AuthURL:      "https://slack.com/oauth/v2/authorize",
		TokenURL:     "https://slack.com/api/oauth.v2.access",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   hc,
	}
}

func (a *Adapter) Name() string { return "slack" }

func (a *Adapter) Services() []credential.Service {
	return []credential.Service{credential.ServiceSlack}
}

func (a *Adapter) Scopes() []string { return scopes }

func (a *Adapter) TokensExpire() bool { return false }

// AuthorizationURL joins scopes with commas; Slack rejects the usual
// space-separated form.
func (a *Adapter) AuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return a.AuthURL + "?" + q.Encode(), nil
}

// ExchangeCode redeems the code. Slack reports errors with HTTP 200 and
// {"ok":false}, so the ok flag is the real status.
func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (provider.TokenSet, error) {
	form := url.Values{}
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
		return nil, fmt.Errorf("slack token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ExchangeError{Provider: "slack", StatusCode: resp.StatusCode, Body: string(body)}
	}

	tokens, err := provider.DecodeTokens(body)
	if err != nil {
		return nil, fmt.Errorf("decode slack tokens: %w", err)
	}
	if ok, _ := tokens["ok"].(bool); !ok {
		return nil, &domain.ExchangeError{Provider: "slack", StatusCode: resp.StatusCode, Body: string(body)}
	}
	tokens.Stamp(time.Now())
	return tokens, nil
}

// MirrorPayload carries only the bot token; the engine's slack credential
// type has no client id or token-data fields.
func (a *Adapter) MirrorPayload(_ credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	return "slackOAuth2Api", map[string]any{
		"accessToken": tokens.AccessToken(),
	}
}
