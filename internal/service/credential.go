package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/database"
	"github.com/myriagon/credvault/internal/port/mirror"
	"github.com/myriagon/credvault/internal/port/provider"
)

// CredentialService covers the non-OAuth vault operations: API-key connects,
// listing and disconnects.
type CredentialService struct {
	store     database.Store
	cipher    *credential.Cipher
	providers *Providers
	mirror    mirror.Mirror
	log       *slog.Logger

	// platformKeys back use_platform_key connects for services the platform
	// holds its own keys for.
	platformKeys map[credential.Service]string
	now          func() time.Time
}

// NewCredentialService wires the service. platformKeys may be nil.
func NewCredentialService(store database.Store, cipher *credential.Cipher, providers *Providers,
	m mirror.Mirror, platformKeys map[credential.Service]string, log *slog.Logger) *CredentialService {
	if platformKeys == nil {
		platformKeys = map[credential.Service]string{}
	}
	return &CredentialService{
		store:        store,
		cipher:       cipher,
		providers:    providers,
		mirror:       m,
		log:          log,
		platformKeys: platformKeys,
		now:          time.Now,
	}
}

// ConnectAPIKey stores an API-key credential for the tenant. With
// usePlatformKey the platform's own key for the service is stored instead of
// a caller-supplied one.
func (s *CredentialService) ConnectAPIKey(ctx context.Context, tenantID string, svc credential.Service, apiKey string, usePlatformKey bool) (*credential.Record, error) {
	if !s.providers.Known(svc) {
		return nil, fmt.Errorf("%w: unknown service %q", domain.ErrValidation, svc)
	}

	key := apiKey
	if usePlatformKey {
		key = s.platformKeys[svc]
		if key == "" {
			return nil, fmt.Errorf("%w: no platform key for %s", domain.ErrValidation, svc)
		}
	}
	if key == "" {
		return nil, fmt.Errorf("%w: api_key is required", domain.ErrValidation)
	}

	tokens := provider.TokenSet{"api_key": key}
	tokens.Stamp(s.now())

	encrypted, nonce, err := s.cipher.Encrypt(tokens)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.UpsertCredential(ctx, &credential.Record{
		TenantID:        tenantID,
		Service:         svc,
		Kind:            credential.KindAPIKey,
		Status:          credential.StatusConnected,
		EncryptedTokens: encrypted,
		Nonce:           nonce,
	})
	if err != nil {
		return nil, err
	}

	if adapter, err := s.providers.ForService(svc); err == nil {
		credType, data := adapter.MirrorPayload(svc, tokens)
		mirrorCredential(ctx, s.log, s.store, s.mirror, stored, credType, data)
	}

	s.log.Info("api key connected", "tenant_id", tenantID, "service", svc)
	return stored, nil
}

// List returns client-safe summaries of the tenant's credentials.
func (s *CredentialService) List(ctx context.Context, tenantID string) ([]credential.Summary, error) {
	recs, err := s.store.ListCredentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	summaries := make([]credential.Summary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, rec.Summary())
	}
	return summaries, nil
}

// Disconnect flips the credential's status. The row and its encrypted blob
// stay in place so a reconnect can reuse the mirror binding.
func (s *CredentialService) Disconnect(ctx context.Context, tenantID string, svc credential.Service) error {
	err := s.store.UpdateCredentialStatus(ctx, tenantID, svc, credential.StatusDisconnected)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotConnected
		}
		return err
	}
	s.log.Info("credential disconnected", "tenant_id", tenantID, "service", svc)
	return nil
}
