// Package google implements the Google OAuth adapter. One Google grant
// backs the gmail, google_sheets and google_drive services.
package google

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
	provider.Register("google", func(cfg provider.Config) (provider.Adapter, error) {
		return New(cfg), nil
	})
}

var scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

var mirrorTypes = map[credential.Service]string{
	credential.ServiceGmail:        "googleOAuth2Api",
	credential.ServiceGoogleSheets: "googleSheetsOAuth2Api",
	credential.ServiceGoogleDrive:  "googleDriveOAuth2Api",
}

// Adapter exchanges and refreshes Google OAuth tokens. Endpoint URLs are
// fields so tests can point them at local stubs.
type Adapter struct {
	AuthURL  string
	TokenURL string

	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// New builds the adapter from a client registration.
func New(cfg provider.Config) *Adapter {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Adapter{
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   hc,
	}
}

func (a *Adapter) Name() string { return "google" }

func (a *Adapter) Services() []credential.Service {
	return []credential.Service{
		credential.ServiceGmail,
		credential.ServiceGoogleSheets,
		credential.ServiceGoogleDrive,
	}
}

func (a *Adapter) Scopes() []string { return scopes }

func (a *Adapter) TokensExpire() bool { return true }

// AuthorizationURL requests offline access with forced consent so Google
// returns a refresh token on every connect, not just the first.
func (a *Adapter) AuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)
	return a.AuthURL + "?" + q.Encode(), nil
}

func (a *Adapter) ExchangeCode(ctx context.Context, code, redirectURI string) (provider.TokenSet, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")
	return a.tokenRequest(ctx, form)
}

// Refresh redeems a refresh token for a new access token. Google omits the
// refresh_token from refresh responses; callers keep the old one.
func (a *Adapter) Refresh(ctx context.Context, refreshToken string) (provider.TokenSet, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("grant_type", "refresh_token")
	return a.tokenRequest(ctx, form)
}

func (a *Adapter) tokenRequest(ctx context.Context, form url.Values) (provider.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ExchangeError{Provider: "google", StatusCode: resp.StatusCode, Body: string(body)}
	}

	tokens, err := provider.DecodeTokens(body)
	if err != nil {
		return nil, fmt.Errorf("decode google tokens: %w", err)
	}
	tokens.Stamp(time.Now())
	return tokens, nil
}

func (a *Adapter) MirrorPayload(service credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	credType, ok := mirrorTypes[service]
	if !ok {
		credType = "googleOAuth2Api"
	}
	// The engine's Google credential types want only the canonical token
	// fields, not the provider metadata.
	return credType, map[string]any{
		"clientId":     a.clientID,
		"clientSecret": a.clientSecret,
		"oauthTokenData": map[string]any{
			"access_token":  tokens.AccessToken(),
			"refresh_token": tokens.RefreshToken(),
			"token_type":    tokens.TokenType(),
			"expires_in":    tokens["expires_in"],
		},
	}
}
