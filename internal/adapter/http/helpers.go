// Package http exposes the vault over a chi-routed JSON API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/myriagon/credvault/internal/domain"
)

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// writeDomainError maps domain errors onto HTTP statuses. Messages for 5xx
// responses stay generic; the detail goes to the log, not the client.
func writeDomainError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		exchangeErr *domain.ExchangeError
		refreshErr  *domain.RefreshError
	)

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrStateInvalid),
		errors.Is(err, domain.ErrStateExpired),
		errors.Is(err, domain.ErrOAuthUnsupported):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, domain.ErrNotConnected), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrNoRefreshToken):
		writeError(w, http.StatusConflict, "token expired and no refresh token stored; reconnect the service")

	case errors.As(err, &exchangeErr):
		log.Error("provider exchange failed", "provider", exchangeErr.Provider,
			"status", exchangeErr.StatusCode, "error", err)
		writeError(w, http.StatusBadGateway,
			fmt.Sprintf("%s token exchange failed", exchangeErr.Provider))

	case errors.As(err, &refreshErr):
		log.Error("token refresh failed", "service", refreshErr.Service, "error", err)
		writeError(w, http.StatusServiceUnavailable,
			fmt.Sprintf("token refresh failed for %s", refreshErr.Service))

	default:
		log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
