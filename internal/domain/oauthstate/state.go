// Package oauthstate holds the single-use OAuth authorization state records.
package oauthstate

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultTTL is how long an issued state token stays redeemable.
const DefaultTTL = 10 * time.Minute

// Record is one pending OAuth authorization. A record is consumed exactly
// once; consumption deletes it.
type Record struct {
	ID          string
	Token       string
	TenantID    string
	UserID      string
	Service     string
	RedirectURI string
	Scopes      []string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NewToken returns a 64-character hex token from 32 random bytes.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
