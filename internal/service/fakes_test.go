package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/domain/oauthstate"
	"github.com/myriagon/credvault/internal/port/provider"
)

// fakeStore is an in-memory database.Store for service tests.
type fakeStore struct {
	mu     sync.Mutex
	creds  map[string]*credential.Record
	states map[string]*oauthstate.Record

	updateTokensErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		creds:  make(map[string]*credential.Record),
		states: make(map[string]*oauthstate.Record),
	}
}

func credKey(tenantID string, svc credential.Service) string {
	return tenantID + "|" + string(svc)
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close()                     {}

func (f *fakeStore) UpsertCredential(_ context.Context, rec *credential.Record) (*credential.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *rec
	key := credKey(rec.TenantID, rec.Service)
	if prev, ok := f.creds[key]; ok {
		stored.ID = prev.ID
		stored.MirrorID = prev.MirrorID
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.ID = uuid.NewString()
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	f.creds[key] = &stored
	out := stored
	return &out, nil
}

func (f *fakeStore) GetCredential(_ context.Context, tenantID string, svc credential.Service) (*credential.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.creds[credKey(tenantID, svc)]
	if !ok {
		return nil, fmt.Errorf("get credential: %w", domain.ErrNotFound)
	}
	out := *rec
	return &out, nil
}

func (f *fakeStore) ListCredentials(_ context.Context, tenantID string) ([]*credential.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recs []*credential.Record
	for _, rec := range f.creds {
		if rec.TenantID == tenantID {
			out := *rec
			recs = append(recs, &out)
		}
	}
	return recs, nil
}

func (f *fakeStore) UpdateCredentialTokens(_ context.Context, id string, encrypted, nonce []byte, expiresAt time.Time) error {
	if f.updateTokensErr != nil {
		return f.updateTokensErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.creds {
		if rec.ID == id {
			rec.EncryptedTokens = encrypted
			rec.Nonce = nonce
			rec.ExpiresAt = expiresAt
			rec.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("update tokens: %w", domain.ErrNotFound)
}

func (f *fakeStore) UpdateCredentialStatus(_ context.Context, tenantID string, svc credential.Service, status credential.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.creds[credKey(tenantID, svc)]
	if !ok {
		return fmt.Errorf("update status: %w", domain.ErrNotFound)
	}
	rec.Status = status
	return nil
}

func (f *fakeStore) SetCredentialMirrorID(_ context.Context, id, mirrorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.creds {
		if rec.ID == id {
			rec.MirrorID = mirrorID
			return nil
		}
	}
	return fmt.Errorf("set mirror id: %w", domain.ErrNotFound)
}

func (f *fakeStore) InsertOAuthState(_ context.Context, rec *oauthstate.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *rec
	f.states[rec.Token] = &out
	return nil
}

func (f *fakeStore) ConsumeOAuthState(_ context.Context, token string) (*oauthstate.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.states[token]
	if !ok {
		return nil, fmt.Errorf("consume oauth state: %w", domain.ErrNotFound)
	}
	delete(f.states, token)
	return rec, nil
}

func (f *fakeStore) DeleteExpiredOAuthStates(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for token, rec := range f.states {
		if rec.Expired(now) {
			delete(f.states, token)
			n++
		}
	}
	return n, nil
}

// fakeMirror records mirror calls.
type fakeMirror struct {
	mu      sync.Mutex
	created []string
	updated []string
	nextID  int
	fail    error
}

func (f *fakeMirror) Create(_ context.Context, name, _ string, _ map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.created = append(f.created, name)
	f.nextID++
	return fmt.Sprintf("mirror-%d", f.nextID), nil
}

func (f *fakeMirror) Update(_ context.Context, _, name, _ string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.updated = append(f.updated, name)
	return nil
}

// fakeAdapter is a scriptable provider adapter.
type fakeAdapter struct {
	name     string
	services []credential.Service
	scopes   []string
	expire   bool

	exchange func(ctx context.Context, code, redirectURI string) (provider.TokenSet, error)
	refresh  func(ctx context.Context, refreshToken string) (provider.TokenSet, error)

	exchangeCalls int
	refreshCalls  int
}

func (f *fakeAdapter) Name() string                          { return f.name }
func (f *fakeAdapter) Services() []credential.Service        { return f.services }
func (f *fakeAdapter) Scopes() []string                      { return f.scopes }
func (f *fakeAdapter) TokensExpire() bool                    { return f.expire }
func (f *fakeAdapter) AuthorizationURL(state, redirectURI string) (string, error) {
	return fmt.Sprintf("https://auth.example.com/authorize?state=%s&redirect_uri=%s", state, redirectURI), nil
}

func (f *fakeAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (provider.TokenSet, error) {
	f.exchangeCalls++
	tokens, err := f.exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	tokens.Stamp(time.Now())
	return tokens, nil
}

func (f *fakeAdapter) MirrorPayload(_ credential.Service, tokens provider.TokenSet) (string, map[string]any) {
	return "fakeApi", map[string]any{"oauthTokenData": map[string]any(tokens)}
}

// refreshable adds the Refresher interface on top of fakeAdapter.
type refreshable struct {
	*fakeAdapter
}

func (f *refreshable) Refresh(ctx context.Context, refreshToken string) (provider.TokenSet, error) {
	f.refreshCalls++
	return f.refresh(ctx, refreshToken)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
