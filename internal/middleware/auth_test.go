package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-signing-secret"

func protected(t *testing.T, captured **Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthValidToken(t *testing.T) {
	token, err := SignToken(testSecret, Claims{
		TenantID:  "tenant-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	var got *Identity
	h := Auth(testSecret, "")(protected(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got == nil || got.TenantID != "tenant-1" || got.UserID != "user-1" {
		t.Errorf("identity = %+v", got)
	}
}

func TestAuthRejections(t *testing.T) {
	valid, _ := SignToken(testSecret, Claims{TenantID: "t1", ExpiresAt: time.Now().Add(time.Hour).Unix()})
	expired, _ := SignToken(testSecret, Claims{TenantID: "t1", ExpiresAt: time.Now().Add(-time.Hour).Unix()})
	wrongKey, _ := SignToken("other-secret", Claims{TenantID: "t1", ExpiresAt: time.Now().Add(time.Hour).Unix()})
	noTenant, _ := SignToken(testSecret, Claims{ExpiresAt: time.Now().Add(time.Hour).Unix()})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"missing tenant", "Bearer " + noTenant, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got *Identity
			h := Auth(testSecret, "")(protected(t, &got))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Errorf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestAuthPublicPaths(t *testing.T) {
	var got *Identity
	h := Auth(testSecret, "")(protected(t, &got))

	for _, path := range []string{"/health", "/oauth/callback"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without a token", path, rr.Code)
		}
	}
}

func TestAuthDevTenant(t *testing.T) {
	var got *Identity
	h := Auth(testSecret, "dev-tenant")(protected(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got == nil || got.TenantID != "dev-tenant" {
		t.Errorf("identity = %+v", got)
	}
}

func TestTenantMiddleware(t *testing.T) {
	var tenant string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant = TenantFromContext(r.Context())
	})

	// Without an identity the request is rejected.
	rr := httptest.NewRecorder()
	Tenant(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), &Identity{TenantID: "tenant-1"}))
	rr = httptest.NewRecorder()
	Tenant(inner).ServeHTTP(rr, req)
	if tenant != "tenant-1" {
		t.Errorf("tenant = %q", tenant)
	}
}
