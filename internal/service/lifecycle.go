package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/domain/oauthstate"
	"github.com/myriagon/credvault/internal/port/database"
	"github.com/myriagon/credvault/internal/port/mirror"
)

// LifecycleService drives the OAuth connect flow from initiation through
// code exchange to stored, mirrored credentials.
type LifecycleService struct {
	store     database.Store
	states    *StateService
	providers *Providers
	cipher    *credential.Cipher
	mirror    mirror.Mirror
	log       *slog.Logger

	callbackURL string
	now         func() time.Time
}

// NewLifecycleService wires the coordinator. publicBaseURL is the externally
// reachable base of this vault; the provider redirects back to
// publicBaseURL/oauth/callback.
func NewLifecycleService(store database.Store, states *StateService, providers *Providers,
	cipher *credential.Cipher, m mirror.Mirror, publicBaseURL string, log *slog.Logger) *LifecycleService {
	return &LifecycleService{
		store:       store,
		states:      states,
		providers:   providers,
		cipher:      cipher,
		mirror:      m,
		log:         log,
		callbackURL: publicBaseURL + "/oauth/callback",
		now:         time.Now,
	}
}

// ExchangeResult reports what a completed exchange connected.
type ExchangeResult struct {
	// Requested is the service named at initiation.
	Requested credential.Service
	// Connected lists every service the grant backs; Google grants connect
	// three services from one exchange.
	Connected []credential.Service
}

// Initiate mints a state token and builds the provider consent URL.
func (s *LifecycleService) Initiate(ctx context.Context, tenantID, userID string, svc credential.Service) (authURL, callbackURL string, err error) {
	adapter, err := s.providers.ForService(svc)
	if err != nil {
		return "", "", err
	}

	token, err := s.states.Issue(ctx, tenantID, userID, string(svc), s.callbackURL, adapter.Scopes())
	if err != nil {
		return "", "", err
	}

	authURL, err = adapter.AuthorizationURL(token, s.callbackURL)
	if err != nil {
		return "", "", err
	}

	s.log.Info("oauth initiated",
		"tenant_id", tenantID, "service", svc, "provider", adapter.Name())
	return authURL, s.callbackURL, nil
}

// CompleteExchange redeems the state, verifies the caller is the initiating
// tenant, and finishes the connect. The tenant check is a hard failure: a
// state leaking across tenants must never bind credentials to the wrong one.
func (s *LifecycleService) CompleteExchange(ctx context.Context, code, stateToken, tenantID string) (*ExchangeResult, error) {
	rec, err := s.states.Consume(ctx, stateToken)
	if err != nil {
		return nil, err
	}
	if rec.TenantID != tenantID {
		s.log.Warn("oauth tenant mismatch",
			"state_tenant", rec.TenantID, "caller_tenant", tenantID, "service", rec.Service)
		return nil, domain.ErrTenantMismatch
	}
	return s.finish(ctx, rec, code)
}

// CompleteCallback finishes the connect for a browser redirect straight from
// the provider. There is no bearer token on that request, so the tenant
// binding comes from the state record alone.
func (s *LifecycleService) CompleteCallback(ctx context.Context, code, stateToken string) (*ExchangeResult, error) {
	rec, err := s.states.Consume(ctx, stateToken)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, rec, code)
}

func (s *LifecycleService) finish(ctx context.Context, rec *oauthstate.Record, code string) (*ExchangeResult, error) {
	svc := credential.Service(rec.Service)
	adapter, err := s.providers.ForService(svc)
	if err != nil {
		return nil, err
	}

	tokens, err := adapter.ExchangeCode(ctx, code, rec.RedirectURI)
	if err != nil {
		return nil, err
	}

	encrypted, nonce, err := s.cipher.Encrypt(tokens)
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if d, ok := tokens.ExpiresIn(); ok && adapter.TokensExpire() {
		expiresAt = s.now().Add(d)
	}

	connected := adapter.Services()
	for _, target := range connected {
		stored, err := s.store.UpsertCredential(ctx, &credential.Record{
			TenantID:        rec.TenantID,
			Service:         target,
			Kind:            credential.KindOAuth2,
			Status:          credential.StatusConnected,
			EncryptedTokens: encrypted,
			Nonce:           nonce,
			Scopes:          adapter.Scopes(),
			ExpiresAt:       expiresAt,
		})
		if err != nil {
			return nil, err
		}

		credType, data := adapter.MirrorPayload(target, tokens)
		mirrorCredential(ctx, s.log, s.store, s.mirror, stored, credType, data)
	}

	s.log.Info("oauth connected",
		"tenant_id", rec.TenantID, "service", svc, "connected", len(connected))
	return &ExchangeResult{Requested: svc, Connected: connected}, nil
}
