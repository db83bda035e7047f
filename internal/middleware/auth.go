package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Identity is the authenticated platform caller.
type Identity struct {
	TenantID string
	UserID   string
}

// Claims is the platform JWT payload.
type Claims struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"exp"`
}

type identityCtxKey struct{}

// publicPaths are exempt from authentication. The OAuth callback is a bare
// browser redirect from the provider and carries no bearer token.
var publicPaths = map[string]bool{
	"/health":         true,
	"/oauth/callback": true,
}

// Auth returns middleware that validates the platform-issued HS256 JWT from
// the Authorization header. When devTenant is non-empty, requests without a
// token are authenticated as that tenant (local development only).
func Auth(secret, devTenant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if devTenant != "" {
					ctx := context.WithValue(r.Context(), identityCtxKey{}, &Identity{
						TenantID: devTenant,
						UserID:   "dev",
					})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			claims, err := VerifyToken(secret, token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityCtxKey{}, &Identity{
				TenantID: claims.TenantID,
				UserID:   claims.UserID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return id
}

// WithIdentity stores an identity in ctx. Exported for handler tests.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

var b64 = base64.RawURLEncoding

// SignToken creates an HS256 JWT with the given claims.
func SignToken(secret string, claims Claims) (string, error) {
	header := b64.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signing := header + "." + b64.EncodeToString(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))

	return signing + "." + b64.EncodeToString(mac.Sum(nil)), nil
}

// VerifyToken validates the signature and expiry of an HS256 JWT and returns
// its claims.
func VerifyToken(secret, token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("malformed token")
	}

	signing := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))

	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, errors.New("malformed signature")
	}
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, errors.New("signature mismatch")
	}

	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return nil, errors.New("malformed payload")
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.New("malformed claims")
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, errors.New("token expired")
	}
	if claims.TenantID == "" {
		return nil, errors.New("missing tenant claim")
	}

	return &claims, nil
}
