package http

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/myriagon/credvault/internal/domain"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/middleware"
)

type initiateRequest struct {
	ServiceName string `json:"service_name"`
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	if req.ServiceName == "" {
		writeError(w, http.StatusBadRequest, "service_name is required")
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	authURL, callbackURL, err := h.lifecycle.Initiate(r.Context(),
		id.TenantID, id.UserID, credential.Service(req.ServiceName))
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url":     authURL,
		"callback_url": callbackURL,
	})
}

type exchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (h *Handler) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.log, err)
		return
	}
	if req.Code == "" || req.State == "" {
		writeError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	result, err := h.lifecycle.CompleteExchange(r.Context(), req.Code, req.State, tenantID)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"service_name": result.Requested,
		"services":     result.Connected,
	})
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>{{if .Success}}Connected{{else}}Connection failed{{end}}</title></head>
<body>
{{if .Success}}
<h2>{{.Service}} connected</h2>
<p>You can close this window.</p>
{{else}}
<h2>Connection failed</h2>
<p>{{.Message}}</p>
{{end}}
<script>
if (window.opener) {
  window.opener.postMessage({
    type: "oauth-callback",
    success: {{.Success}},
    service: {{.Service}}
  }, "*");
  window.close();
}
</script>
</body>
</html>`))

type callbackView struct {
	Success bool
	Service string
	Message string
}

// handleCallback is the browser redirect target. It answers with HTML, not
// JSON, and hands the result back to the opening window.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if provErr := q.Get("error"); provErr != "" {
		h.log.Warn("oauth callback denied by provider", "error", provErr)
		h.renderCallback(w, http.StatusBadRequest, callbackView{
			Message: "the provider denied the request: " + provErr,
		})
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.renderCallback(w, http.StatusBadRequest, callbackView{
			Message: "missing code or state",
		})
		return
	}

	result, err := h.lifecycle.CompleteCallback(r.Context(), code, state)
	if err != nil {
		status := http.StatusBadRequest
		msg := "the authorization could not be completed; please try connecting again"
		switch {
		case errors.Is(err, domain.ErrStateExpired):
			msg = "the authorization took too long; please try connecting again"
		case errors.Is(err, domain.ErrStateInvalid):
			msg = "this authorization link was already used; please try connecting again"
		default:
			h.log.Error("oauth callback failed", "error", err)
			status = http.StatusBadGateway
		}
		h.renderCallback(w, status, callbackView{Message: msg})
		return
	}

	h.renderCallback(w, http.StatusOK, callbackView{
		Success: true,
		Service: credential.DisplayName(result.Requested),
	})
}

func (h *Handler) renderCallback(w http.ResponseWriter, status int, view callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackPage.Execute(w, view); err != nil {
		h.log.Error("render callback page", "error", err)
	}
}
