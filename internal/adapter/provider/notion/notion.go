// Package notion implements the Notion OAuth adapter. Notion authenticates
// the token exchange with HTTP Basic and takes a JSON body, unlike the other
// form-encoded providers.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/provider"
)

func init() {
	provider.Register("notion", func(cfg provider.Config) (provider.Adapter, error) {
		return New(cfg), nil
	})
}

// Adapter exchanges Notion OAuth codes. Notion integration tokens do not
// expire.
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
		AuthURL:      "https://api.notion.com/v1/oauth/authorize",
		TokenURL:     "https://api.notion.com/v1/oauth/token",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   hc,
	}
}

func (a *Adapter) Name() string { return "notion" }

func (a *Adapter) Services() []credential.Service {
	return []credential.Service{credential.ServiceNotion}
}

// Scopes is empty: Notion grants access per-page at consent time.
func (a *Adapter) Scopes() []string { return nil }

func (a *Adapter) TokensExpire() bool { return false }

func (a *Adapter) AuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("response_type", "code")
	q.Set("owner", "user")
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return a.AuthURL + "?" + q.Encode(), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (provider.TokenSet, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL,
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.clientID, a.clientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ExchangeError{Provider: "notion", StatusCode: resp.StatusCode, Body: string(body)}
	}

	tokens, err := provider.DecodeTokens(body)
	if err != nil {
		return nil, fmt.Errorf("decode notion tokens: %w", err)
	}
	tokens.Stamp(time.Now())
	return tokens, nil
}

func (a *Adapter) MirrorPayload(_ credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	return "notionOAuth2Api", map[string]any{
		"apiKey": tokens.AccessToken(),
	}
}
