package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/myriagon/credvault/internal/config"
	"github.com/myriagon/credvault/internal/middleware"
	"github.com/myriagon/credvault/internal/service"
)

// Handler bundles the HTTP surface's dependencies.
type Handler struct {
	credentials *service.CredentialService
	lifecycle   *service.LifecycleService
	resolver    *service.ResolverService
	pinger      interface{ Ping(context.Context) error }
	log         *slog.Logger
}

// NewHandler creates the handler set.
func NewHandler(credentials *service.CredentialService, lifecycle *service.LifecycleService,
	resolver *service.ResolverService, pinger interface{ Ping(context.Context) error },
	log *slog.Logger) *Handler {
	return &Handler{
		credentials: credentials,
		lifecycle:   lifecycle,
		resolver:    resolver,
		pinger:      pinger,
		log:         log,
	}
}

// Router assembles the chi router with the full middleware chain.
func (h *Handler) Router(cfg *config.Config, limiter *middleware.RateLimiter, trace func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(corsMiddleware(cfg.Server.CORSOrigin))
	if trace != nil {
		r.Use(trace)
	}
	r.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.DevTenant))

	r.Get("/health", h.handleHealth)
	r.Get("/oauth/callback", h.handleCallback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Tenant)
		if limiter != nil {
			r.Use(limiter.Handler)
		}

		r.Post("/oauth/initiate", h.handleInitiate)
		r.Post("/oauth/exchange", h.handleExchange)

		r.Post("/credentials", h.handleCreateCredential)
		r.Get("/credentials", h.handleListCredentials)
		r.Delete("/credentials/{service}", h.handleDisconnect)

		r.Post("/tokens/resolve", h.handleResolveToken)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	deps := map[string]string{"postgres": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["postgres"] = err.Error()
	}

	writeJSON(w, code, map[string]any{
		"status":       status,
		"dependencies": deps,
	})
}

// corsMiddleware allows the configured origin.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
