// Package credential defines the domain types for stored tenant credentials.
package credential

import "time"

// Service identifies a third-party service a tenant can connect.
type Service string

// Known services. Google OAuth fans out into three logical services that
// share one token set.
const (
	ServiceGmail        Service = "gmail"
	ServiceGoogleSheets Service = "google_sheets"
	ServiceGoogleDrive  Service = "google_drive"
	ServiceSlack        Service = "slack"
	ServiceNotion       Service = "notion"
	ServiceHubSpot      Service = "hubspot"
	ServiceStripe       Service = "stripe"
	ServiceOpenAI       Service = "openai"
	ServiceAnthropic    Service = "anthropic"
	ServiceSupabase     Service = "supabase"
)

// Kind distinguishes how a credential authenticates.
type Kind string

const (
	KindAPIKey Kind = "api_key"
	KindOAuth2 Kind = "oauth2"
)

// Status is the connection state of a credential. Disconnection is a status
// change, never a row delete.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Record is the persisted credential for one (tenant, service) pair.
// EncryptedTokens and Nonce are never serialized to clients.
type Record struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Service         Service   `json:"service_name"`
	Kind            Kind      `json:"credential_type"`
	Status          Status    `json:"status"`
	EncryptedTokens []byte    `json:"-"`
	Nonce           []byte    `json:"-"`
	Scopes          []string  `json:"scopes,omitempty"`
	ExpiresAt       time.Time `json:"token_expires_at,omitzero"`
	MirrorID        string    `json:"mirror_credential_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Summary is the client-facing view of a Record, with no secret material.
type Summary struct {
	ID        string    `json:"id"`
	Service   Service   `json:"service_name"`
	Kind      Kind      `json:"credential_type"`
	Status    Status    `json:"status"`
	Scopes    []string  `json:"scopes,omitempty"`
	ExpiresAt time.Time `json:"token_expires_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the client-facing projection of the record.
func (r *Record) Summary() Summary {
	return Summary{
		ID:        r.ID,
		Service:   r.Service,
		Kind:      r.Kind,
		Status:    r.Status,
		Scopes:    r.Scopes,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// displayNames maps services to the name shown on the OAuth confirmation page.
var displayNames = map[Service]string{
	ServiceGmail:        "Google",
	ServiceGoogleSheets: "Google",
	ServiceGoogleDrive:  "Google",
	ServiceSlack:        "Slack",
	ServiceNotion:       "Notion",
	ServiceHubSpot:      "HubSpot",
	ServiceStripe:       "Stripe",
}

// DisplayName returns a human-readable provider name for s.
func DisplayName(s Service) string {
	if n, ok := displayNames[s]; ok {
		return n
	}
	return string(s)
}
