// Package domain provides shared domain-level sentinel and typed errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates invalid caller input.
var ErrValidation = errors.New("validation failed")

// ErrNotConnected indicates the tenant has no connected credential for the
// requested service. Callers use this to drive "please connect" UX, so it
// must stay distinguishable from a generic ErrNotFound.
var ErrNotConnected = errors.New("service not connected")

// ErrStateInvalid indicates an OAuth state token that does not exist or has
// already been consumed. A replayed exchange lands here.
var ErrStateInvalid = errors.New("oauth state invalid or already used")

// ErrStateExpired indicates an OAuth state token past its expiry.
var ErrStateExpired = errors.New("oauth state expired")

// ErrTenantMismatch indicates the caller completing an exchange is not the
// tenant that initiated it. Hard failure, never recoverable.
var ErrTenantMismatch = errors.New("oauth state belongs to a different tenant")

// ErrNoStoredTokens indicates a connected credential whose encrypted blob is empty.
var ErrNoStoredTokens = errors.New("no stored tokens")

// ErrNoRefreshToken indicates an expired OAuth credential without a refresh
// token; the user must reconnect the service.
var ErrNoRefreshToken = errors.New("no refresh token available")

// ErrDecryption indicates an auth-tag mismatch or malformed ciphertext.
// Treated as data corruption, never silently ignored.
var ErrDecryption = errors.New("token decryption failed")

// ErrKeyMaterial indicates missing or malformed encryption key configuration.
var ErrKeyMaterial = errors.New("invalid credential encryption key")

// ErrOAuthUnsupported indicates an OAuth flow was requested for a service
// that only supports API-key credentials.
var ErrOAuthUnsupported = errors.New("oauth not supported for this service")

// ExchangeError indicates the provider rejected an authorization-code
// exchange. Codes are single-use, so the exchange is never retried.
type ExchangeError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
}

// RefreshError indicates an access-token refresh failed. The service is
// temporarily unusable; the tenant stays connected.
type RefreshError struct {
	Service string
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for %s: %v", e.Service, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
