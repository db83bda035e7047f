package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/middleware"
)

type createCredentialRequest struct {
	ServiceName    string `json:"service_name"`
	APIKey         string `json:"api_key,omitempty"`
	UsePlatformKey bool   `json:"use_platform_key,omitempty"`
}

func (h *Handler) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	if req.ServiceName == "" {
		writeError(w, http.StatusBadRequest, "service_name is required")
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	rec, err := h.credentials.ConnectAPIKey(r.Context(), tenantID,
		credential.Service(req.ServiceName), req.APIKey, req.UsePlatformKey)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec.Summary())
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	summaries, err := h.credentials.List(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": summaries})
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	svc := chi.URLParam(r, "service")
	if svc == "" {
		writeError(w, http.StatusBadRequest, "service is required")
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	if err := h.credentials.Disconnect(r.Context(), tenantID, credential.Service(svc)); err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"service_name": svc,
		"status":       credential.StatusDisconnected,
	})
}

type resolveRequest struct {
	ServiceName string `json:"service_name"`
}

func (h *Handler) handleResolveToken(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	if req.ServiceName == "" {
		writeError(w, http.StatusBadRequest, "service_name is required")
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	token, err := h.resolver.Resolve(r.Context(), tenantID, credential.Service(req.ServiceName))
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}
