package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/port/database"
	"github.com/myriagon/credvault/internal/port/mirror"
)

// mirrorName is the engine-side credential name for a (tenant, service) pair.
func mirrorName(tenantID string, svc credential.Service) string {
	return fmt.Sprintf("tenant_%s_%s", tenantID, svc)
}

// mirrorCredential projects a stored credential into the external engine.
// Every failure is logged and swallowed: the vault is the source of truth
// and a connect must not fail because the engine is down.
func mirrorCredential(ctx context.Context, log *slog.Logger, st database.Store, m mirror.Mirror,
	rec *credential.Record, credType string, data map[string]any) {

	name := mirrorName(rec.TenantID, rec.Service)

	if rec.MirrorID != "" {
		if err := m.Update(ctx, rec.MirrorID, name, credType, data); err != nil {
			log.Warn("mirror update failed",
				"tenant_id", rec.TenantID, "service", rec.Service, "error", err)
		}
		return
	}

	id, err := m.Create(ctx, name, credType, data)
	if err != nil {
		if errors.Is(err, mirror.ErrNotConfigured) {
			log.Debug("mirror not configured, skipping",
				"tenant_id", rec.TenantID, "service", rec.Service)
		} else {
			log.Warn("mirror create failed",
				"tenant_id", rec.TenantID, "service", rec.Service, "error", err)
		}
		return
	}

	if err := st.SetCredentialMirrorID(ctx, rec.ID, id); err != nil {
		log.Warn("persisting mirror id failed",
			"tenant_id", rec.TenantID, "service", rec.Service, "error", err)
	}
}
