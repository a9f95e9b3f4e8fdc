package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/circularsync/gateway/internal/adapter/http"
	cfotel "github.com/circularsync/gateway/internal/adapter/otel"
	"github.com/circularsync/gateway/internal/adapter/upstream"
	"github.com/circularsync/gateway/internal/adapter/ws"
	"github.com/circularsync/gateway/internal/config"
	"github.com/circularsync/gateway/internal/logger"
	"github.com/circularsync/gateway/internal/middleware"
	"github.com/circularsync/gateway/internal/resilience"
	"github.com/circularsync/gateway/internal/secrets"
	"github.com/circularsync/gateway/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "cache" {
		if err := runCache(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"cache_backend", cfg.Cache.Backend,
		"l1_enabled", cfg.Cache.L1Enabled,
		"nats_enabled", cfg.NATS.Enabled,
		"upstream", cfg.Upstream.BaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownOtel, err := cfotel.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	deps, err := openInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	// --- Services ---
	hub := ws.NewHub(wsOrigins(cfg.Server.CORSOrigin)...)
	defer hub.Close()

	vault, err := secrets.NewVault(secrets.EnvLoader(map[string]string{
		secrets.KeyAdminToken:    cfg.Server.AdminToken,
		secrets.KeyUpstreamToken: cfg.Upstream.Token,
	}, secrets.KeyAdminToken, secrets.KeyUpstreamToken))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	slog.Info("secrets loaded",
		"admin_token", vault.Redacted(secrets.KeyAdminToken),
		"upstream_token", vault.Redacted(secrets.KeyUpstreamToken),
	)
	go reloadOnSIGHUP(ctx, vault)

	breaker := resilience.NewBreaker("upstream", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	client := upstream.NewClient(cfg.Upstream, cfg.Routes)
	client.SetBreaker(breaker)
	client.SetBulkhead(resilience.NewBulkhead(cfg.Upstream.MaxConcurrent))
	client.SetTokenSource(vault.Source(secrets.KeyUpstreamToken))
	client.SetMetrics(metrics)

	readThrough := service.NewReadThrough(deps.store)
	readThrough.SetBroadcaster(hub)
	readThrough.SetMetrics(metrics)
	if deps.l1 != nil {
		readThrough.SetLocal(deps.l1)
	}
	if deps.queue != nil {
		readThrough.SetQueue(deps.queue)
	}
	dashboard := service.NewDashboardService(readThrough, client, cfg.Routes)

	cancelListener, err := readThrough.StartInvalidationListener(ctx)
	if err != nil {
		return fmt.Errorf("invalidation listener: %w", err)
	}
	defer cancelListener()
	slog.Info("services ready", "instance_id", readThrough.InstanceID())

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Dashboard: dashboard,
		Cache:     readThrough,
		Store:     deps.store,
	}
	if deps.queue != nil {
		handlers.Queue = deps.queue
	}

	limiter := middleware.NewRateLimiter(cfg.Rate)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()

	r.Use(cfotel.HTTPMiddleware(cfg.Telemetry.ServiceName))
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(limiter.Handler)

	// The WebSocket route must not run under the request timeout.
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
		cfhttp.MountRoutes(r, handlers, vault.Source(secrets.KeyAdminToken), nil)
	})
	r.Get("/ws", hub.HandleWS)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// reloadOnSIGHUP re-reads secrets whenever the process receives SIGHUP.
func reloadOnSIGHUP(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed, keeping previous values", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "admin_token", vault.Redacted(secrets.KeyAdminToken))
		}
	}
}

// wsOrigins turns the CORS origin into a WebSocket origin pattern (host only).
func wsOrigins(corsOrigin string) []string {
	if corsOrigin == "" || corsOrigin == "*" {
		return nil
	}
	u, err := url.Parse(corsOrigin)
	if err != nil || u.Host == "" {
		return []string{corsOrigin}
	}
	return []string{u.Host}
}
