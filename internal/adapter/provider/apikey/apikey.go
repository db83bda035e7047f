// Package apikey implements the adapter for services connected with a plain
// API key instead of an OAuth grant.
package apikey

import (
	"context"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/provider"
)

func init() {
	provider.Register("apikey", func(cfg provider.Config) (provider.Adapter, error) {
		return New(cfg), nil
	})
}

var mirrorTypes = map[credential.Service]string{
	credential.ServiceOpenAI:    "openAiApi",
	credential.ServiceAnthropic: "anthropicApi",
	credential.ServiceSupabase:  "supabaseApi",
}

// Adapter covers api_key services. OAuth operations are unsupported.
type Adapter struct{}

func New(_ provider.Config) *Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return "apikey" }

func (a *Adapter) Services() []credential.Service {
	return []credential.Service{
		credential.ServiceOpenAI,
		credential.ServiceAnthropic,
		credential.ServiceSupabase,
	}
}

func (a *Adapter) Scopes() []string { return nil }

func (a *Adapter) TokensExpire() bool { return false }

func (a *Adapter) AuthorizationURL(_, _ string) (string, error) {
	return "", domain.ErrOAuthUnsupported
}

func (a *Adapter) ExchangeCode(_ context.Context, _, _ string) (provider.TokenSet, error) {
	return nil, domain.ErrOAuthUnsupported
}

func (a *Adapter) MirrorPayload(service credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	credType, ok := mirrorTypes[service]
	if !ok {
		credType = "httpHeaderAuth"
	}
	key, _ := tokens["api_key"].(string)
	return credType, map[string]any{
		"apiKey": key,
	}
}
