package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myriagon/credvault/internal/port/counter"
)

// RateLimiter enforces a per-tenant fixed-window request limit. The window
// counter lives behind the counter port so the limit holds across instances
// sharing one backend.
type RateLimiter struct {
	counter counter.Counter
	limit   int64
	window  time.Duration
	log     *slog.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(c counter.Counter, limit int, window time.Duration, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		counter: c,
		limit:   int64(limit),
		window:  window,
		log:     log,
	}
}

// Handler returns HTTP middleware enforcing the per-tenant limit. Tenant must
// already be in the context. Counter backend failures fail open: the vault
// must not go down with its rate-limit store.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := TenantFromContext(r.Context())
		if tenant == "" {
			next.ServeHTTP(w, r)
			return
		}

		n, err := rl.counter.Incr(r.Context(), tenant, rl.window)
		if err != nil {
			rl.log.Warn("rate counter unavailable, allowing request",
				"tenant_id", tenant, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - n
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if n > rl.limit {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
