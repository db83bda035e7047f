package apikey

import (
	"context"
	"errors"
	"testing"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/provider"
)

func TestOAuthUnsupported(t *testing.T) {
	a := New(provider.Config{})

	if _, err := a.AuthorizationURL("st", "uri"); !errors.Is(err, domain.ErrOAuthUnsupported) {
		t.Errorf("AuthorizationURL: err = %v", err)
	}
	if _, err := a.ExchangeCode(context.Background(), "c", "uri"); !errors.Is(err, domain.ErrOAuthUnsupported) {
		t.Errorf("ExchangeCode: err = %v", err)
	}
}

func TestMirrorPayload(t *testing.T) {
	a := New(provider.Config{})

	credType, data := a.MirrorPayload(credential.ServiceOpenAI, provider.TokenSet{"api_key": "sk-1"})
	if credType != "openAiApi" || data["apiKey"] != "sk-1" {
		t.Errorf("credType=%q data=%v", credType, data)
	}

	credType, _ = a.MirrorPayload(credential.ServiceAnthropic, provider.TokenSet{"api_key": "sk-2"})
	if credType != "anthropicApi" {
		t.Errorf("credType = %q", credType)
	}
}
