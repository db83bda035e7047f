package middleware

import (
	"context"
	"net/http"
)

type tenantCtxKey struct{}

// Tenant is middleware that lifts the authenticated identity's tenant into
// its own context slot. It rejects requests with no identity; Auth must run
// before it.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil || id.TenantID == "" {
			http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), tenantCtxKey{}, id.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantFromContext returns the tenant ID stored in ctx, or empty.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantCtxKey{}).(string)
	return tid
}

// WithTenant stores a tenant ID in ctx. Exported for handler tests.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}
