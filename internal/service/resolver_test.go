package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/provider"
)

func seedCredential(t *testing.T, store *fakeStore, cipher *credential.Cipher,
	svc credential.Service, kind credential.Kind, tokens map[string]any, expiresAt time.Time) *credential.Record {
	t.Helper()
	encrypted, nonce, err := cipher.Encrypt(tokens)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	rec, err := store.UpsertCredential(context.Background(), &credential.Record{
		TenantID:        "tenant-1",
		Service:         svc,
		Kind:            kind,
		Status:          credential.StatusConnected,
		EncryptedTokens: encrypted,
		Nonce:           nonce,
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		t.Fatalf("UpsertCredential: %v", err)
	}
	return rec
}

func googleRefreshable(refresh func(context.Context, string) (provider.TokenSet, error)) *refreshable {
	return &refreshable{fakeAdapter: &fakeAdapter{
		name:     "google",
		services: []credential.Service{credential.ServiceGmail},
		expire:   true,
		refresh:  refresh,
	}}
}

func newResolverFixture(t *testing.T, adapters ...provider.Adapter) (*ResolverService, *fakeStore, *credential.Cipher) {
	t.Helper()
	store := newFakeStore()
	cipher := newTestCipher(t)
	r := NewResolverService(store, cipher, NewProviders(adapters...), 5*time.Minute, discardLogger())
	return r, store, cipher
}

func TestResolveNotConnected(t *testing.T) {
	r, store, cipher := newResolverFixture(t, slackFake())
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "tenant-1", credential.ServiceSlack); !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("no record: err = %v, want ErrNotConnected", err)
	}

	seedCredential(t, store, cipher, credential.ServiceSlack, credential.KindOAuth2,
		map[string]any{"access_token": "xoxb-1"}, time.Time{})
	if err := store.UpdateCredentialStatus(ctx, "tenant-1", credential.ServiceSlack, credential.StatusDisconnected); err != nil {
		t.Fatalf("UpdateCredentialStatus: %v", err)
	}

	if _, err := r.Resolve(ctx, "tenant-1", credential.ServiceSlack); !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("disconnected record: err = %v, want ErrNotConnected", err)
	}
}

func TestResolveAPIKeyBypass(t *testing.T) {
	apikeyAdapter := &fakeAdapter{
		name:     "apikey",
		services: []credential.Service{credential.ServiceOpenAI},
	}
	r, store, cipher := newResolverFixture(t, apikeyAdapter)

	seedCredential(t, store, cipher, credential.ServiceOpenAI, credential.KindAPIKey,
		map[string]any{"api_key": "sk-test"}, time.Time{})

	token, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceOpenAI)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.AccessToken != "sk-test" || token.TokenType != "api_key" {
		t.Errorf("token = %+v", token)
	}
}

func TestResolveFreshTokenNoRefresh(t *testing.T) {
	adapter := googleRefreshable(func(context.Context, string) (provider.TokenSet, error) {
		t.Fatal("refresh must not run for a fresh token")
		return nil, nil
	})
	r, store, cipher := newResolverFixture(t, adapter)

	seedCredential(t, store, cipher, credential.ServiceGmail, credential.KindOAuth2,
		map[string]any{"access_token": "ya29.fresh", "refresh_token": "1//r"},
		time.Now().Add(time.Hour))

	token, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceGmail)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.AccessToken != "ya29.fresh" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	if adapter.refreshCalls != 0 {
		t.Errorf("refresh called %d times, want 0", adapter.refreshCalls)
	}
}

func TestResolveRefreshWithinBuffer(t *testing.T) {
	adapter := googleRefreshable(func(_ context.Context, refreshToken string) (provider.TokenSet, error) {
		if refreshToken != "1//r" {
			return nil, errors.New("wrong refresh token")
		}
		return provider.TokenSet{
			"access_token": "ya29.new",
			"expires_in":   float64(3600),
			"token_type":   "Bearer",
		}, nil
	})
	r, store, cipher := newResolverFixture(t, adapter)

	// Expires in 2 minutes: inside the 5-minute buffer.
	rec := seedCredential(t, store, cipher, credential.ServiceGmail, credential.KindOAuth2,
		map[string]any{"access_token": "ya29.old", "refresh_token": "1//r"},
		time.Now().Add(2*time.Minute))

	token, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceGmail)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.AccessToken != "ya29.new" {
		t.Errorf("access token = %q, want refreshed", token.AccessToken)
	}
	if adapter.refreshCalls != 1 {
		t.Errorf("refresh called %d times, want 1", adapter.refreshCalls)
	}

	// The stored blob carries the new access token and keeps the old
	// refresh token Google omitted from the response.
	stored, err := store.GetCredential(context.Background(), "tenant-1", credential.ServiceGmail)
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if stored.ID != rec.ID {
		t.Errorf("record id changed across refresh")
	}
	tokens, err := cipher.Decrypt(stored.EncryptedTokens, stored.Nonce)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if tokens["access_token"] != "ya29.new" {
		t.Errorf("stored access_token = %v", tokens["access_token"])
	}
	if tokens["refresh_token"] != "1//r" {
		t.Errorf("stored refresh_token = %v, want original preserved", tokens["refresh_token"])
	}
	if stored.ExpiresAt.Before(time.Now().Add(50 * time.Minute)) {
		t.Errorf("stored expiry = %v, want ~1h out", stored.ExpiresAt)
	}
}

func TestResolveNoRefreshToken(t *testing.T) {
	adapter := googleRefreshable(func(context.Context, string) (provider.TokenSet, error) {
		t.Fatal("refresh must not run without a refresh token")
		return nil, nil
	})
	r, store, cipher := newResolverFixture(t, adapter)

	seedCredential(t, store, cipher, credential.ServiceGmail, credential.KindOAuth2,
		map[string]any{"access_token": "ya29.old"}, time.Now().Add(-time.Minute))

	if _, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceGmail); !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Errorf("err = %v, want ErrNoRefreshToken", err)
	}
}

func TestResolveRefreshFailure(t *testing.T) {
	adapter := googleRefreshable(func(context.Context, string) (provider.TokenSet, error) {
		return nil, errors.New("invalid_grant")
	})
	r, store, cipher := newResolverFixture(t, adapter)

	seedCredential(t, store, cipher, credential.ServiceGmail, credential.KindOAuth2,
		map[string]any{"access_token": "ya29.old", "refresh_token": "1//r"},
		time.Now().Add(-time.Minute))

	_, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceGmail)
	var refreshErr *domain.RefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("err = %v, want RefreshError", err)
	}
	if refreshErr.Service != "gmail" {
		t.Errorf("service = %q", refreshErr.Service)
	}
}

func TestResolveNonExpiringProviderNeverRefreshes(t *testing.T) {
	r, store, cipher := newResolverFixture(t, slackFake())

	// Even a years-old obtained_at must not trigger a refresh for Slack.
	seedCredential(t, store, cipher, credential.ServiceSlack, credential.KindOAuth2,
		map[string]any{
			"access_token": "xoxb-1",
			"obtained_at":  time.Now().Add(-24 * 365 * time.Hour).UTC().Format(time.RFC3339),
		}, time.Time{})

	token, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceSlack)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.AccessToken != "xoxb-1" {
		t.Errorf("access token = %q", token.AccessToken)
	}
}

func TestResolveExpiredWithoutRefresherRequiresReconnect(t *testing.T) {
	hubspot := &fakeAdapter{
		name:     "hubspot",
		services: []credential.Service{credential.ServiceHubSpot},
		expire:   true,
	}
	r, store, cipher := newResolverFixture(t, hubspot)

	// Still valid: handed back as-is.
	seedCredential(t, store, cipher, credential.ServiceHubSpot, credential.KindOAuth2,
		map[string]any{"access_token": "hs-live", "refresh_token": "hs-r"},
		time.Now().Add(time.Hour))
	token, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceHubSpot)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if token.AccessToken != "hs-live" {
		t.Errorf("access token = %q", token.AccessToken)
	}

	// Expired with no refresh path: a stale token must never be handed out.
	seedCredential(t, store, cipher, credential.ServiceHubSpot, credential.KindOAuth2,
		map[string]any{"access_token": "hs-old", "refresh_token": "hs-r"},
		time.Now().Add(-time.Minute))
	if _, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceHubSpot); !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Errorf("err = %v, want ErrNoRefreshToken", err)
	}
}

func TestResolveEmptyBlob(t *testing.T) {
	r, store, _ := newResolverFixture(t, slackFake())

	if _, err := store.UpsertCredential(context.Background(), &credential.Record{
		TenantID: "tenant-1",
		Service:  credential.ServiceSlack,
		Kind:     credential.KindOAuth2,
		Status:   credential.StatusConnected,
	}); err != nil {
		t.Fatalf("UpsertCredential: %v", err)
	}

	if _, err := r.Resolve(context.Background(), "tenant-1", credential.ServiceSlack); !errors.Is(err, domain.ErrNoStoredTokens) {
		t.Errorf("err = %v, want ErrNoStoredTokens", err)
	}
}
