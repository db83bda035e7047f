// Command credvault runs the credential vault and OAuth lifecycle service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/myriagon/credvault/internal/adapter/http"
	"github.com/myriagon/credvault/internal/adapter/n8n"
	"github.com/myriagon/credvault/internal/adapter/natskv"
	otelx "github.com/myriagon/credvault/internal/adapter/otel"
	"github.com/myriagon/credvault/internal/adapter/postgres"
	"github.com/myriagon/credvault/internal/config"
	"github.com/myriagon/credvault/internal/domain/credential"
	"github.com/myriagon/credvault/internal/logger"
	"github.com/myriagon/credvault/internal/middleware"
	"github.com/myriagon/credvault/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "credvault:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	cipher, err := credential.NewCipher(cfg.Vault.EncryptionKey)
	if err != nil {
		return err
	}

	shutdownTracing, err := otelx.Setup(ctx, cfg.Tracing, cfg.Logging.Service)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return err
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	store := postgres.NewStore(pool)
	defer store.Close()

	// Rate limiting degrades gracefully: a vault without its counter
	// backend still serves tokens.
	var limiter *middleware.RateLimiter
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("credvault"))
	if err != nil {
		log.Warn("nats unavailable, per-tenant rate limiting disabled",
			"url", cfg.NATS.URL, "error", err)
	} else {
		defer nc.Close()
		counter, err := natskv.NewCounter(ctx, nc, cfg.NATS.Bucket, cfg.Rate.Window)
		if err != nil {
			return err
		}
		limiter = middleware.NewRateLimiter(counter, cfg.Rate.RequestsPerWindow, cfg.Rate.Window, log)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	mirrorClient := n8n.NewClient(cfg.Mirror)
	states := service.NewStateService(store, cfg.OAuth.StateTTL)
	lifecycle := service.NewLifecycleService(store, states, providers, cipher,
		mirrorClient, cfg.Server.PublicBaseURL, log)
	credentials := service.NewCredentialService(store, cipher, providers, mirrorClient,
		map[credential.Service]string{
			credential.ServiceOpenAI:    cfg.Vault.PlatformOpenAIKey,
			credential.ServiceAnthropic: cfg.Vault.PlatformAnthropicKey,
		}, log)
	resolver := service.NewResolverService(store, cipher, providers, cfg.Vault.RefreshBuffer, log)

	handler := httpapi.NewHandler(credentials, lifecycle, resolver, store, log)
	var trace func(http.Handler) http.Handler
	if cfg.Tracing.Enabled {
		trace = otelx.Middleware
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.Router(cfg, limiter, trace),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("credvault listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	// Periodic garbage collection of expired OAuth states.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.OAuth.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := states.Sweep(gctx); err != nil {
					log.Warn("oauth state sweep failed", "error", err)
				} else if n > 0 {
					log.Debug("swept expired oauth states", "count", n)
				}
			}
		}
	})

	return g.Wait()
}
