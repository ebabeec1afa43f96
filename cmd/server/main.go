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

	"golang.org/x/sync/errgroup"

	"storefront/internal/adapters/catalogfile"
	emailPkg "storefront/internal/adapters/email"
	web "storefront/internal/adapters/http"
	"storefront/internal/adapters/http/perf"
	"storefront/internal/adapters/storage"
	"storefront/internal/adapters/storage/kv"
	outboxStorePkg "storefront/internal/adapters/storage/outbox"
	"storefront/internal/application/orchestrators"
	"storefront/internal/config"
	"storefront/internal/domain/outbox"
	"storefront/internal/state"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := perf.NewCollector(cfg.Perf.RingSize)

	db, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.MigrateDB(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	timedDB := storage.NewTimedDB(db, collector, cfg.Perf.SlowQuery.Std())

	store, health, closeStore, err := openStateStore(ctx, cfg, timedDB)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := state.NewRegistry(store, state.Options{
		ComparePolicy: cfg.Session.ComparePolicy,
		Collector:     collector,
		WriteTimeout:  cfg.Storage.WriteTimeout.Std(),
		IdleTTL:       cfg.Session.IdleTTL.Std(),
		SweepInterval: cfg.Session.SweepInterval.Std(),
	})

	catalog, err := catalogfile.NewSource(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	outboxes := outboxStorePkg.NewSQLiteStore(timedDB)
	processor := orchestrators.NewOutboxProcessor(outboxes, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeOrderConfirmation: &orchestrators.EmailExecutor{Sender: emailSender(cfg)},
	}, orchestrators.OutboxOptions{
		BaseDelay: cfg.Outbox.BaseDelay.Std(),
		MaxDelay:  cfg.Outbox.MaxDelay.Std(),
	})

	csrfKey, err := web.LoadCSRFKey(cfg.Security.CSRFKey, cfg.Production())
	if err != nil {
		return err
	}

	handler := web.New(web.Deps{
		Registry:  registry,
		Catalog:   catalog,
		Rules:     cfg.Pricing,
		Outbox:    outboxes,
		Processor: processor,
		Collector: collector,
		Health:    health,
	}, web.Options{
		CookieSecure:   cfg.Session.CookieSecure,
		CSRFKey:        csrfKey,
		TrustedOrigins: cfg.Security.TrustedOrigins,
		RateLimit:      cfg.Security.RateLimit,
		RateBurst:      cfg.Security.RateBurst,
		SlowRequest:    cfg.Perf.SlowRequest.Std(),
		AdminToken:     cfg.Security.AdminToken,
		StaticDir:      cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	// Shutdown does not touch hijacked websocket connections.
	srv.RegisterOnShutdown(handler.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"backend", cfg.Storage.Backend,
			"schema", storage.LatestSchemaVersion(),
			"products", len(catalog.Current().Products),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return registry.Run(gctx) })
	g.Go(func() error { return catalog.Run(gctx) })
	g.Go(func() error { return processor.Run(gctx, cfg.Outbox.Interval.Std()) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("server_stopping")
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("server_stopped")
	return err
}

func setupLogging(cfg config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Production() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// openStateStore picks the session state backend. The returned health check
// pings whichever backend holds session state.
func openStateStore(ctx context.Context, cfg config.Config, db *storage.TimedDB) (kv.Store, func(context.Context) error, func(), error) {
	if cfg.Storage.Backend != "redis" {
		return kv.NewSQLiteStore(db), db.PingContext, func() {}, nil
	}
	rs, err := kv.NewRedisStore(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisTTL.Std())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeFn := func() {
		if err := rs.Close(); err != nil {
			slog.Warn("redis_close_failed", "error", err)
		}
	}
	return rs, rs.Ping, closeFn, nil
}

func emailSender(cfg config.Config) emailPkg.Sender {
	if cfg.Email.ResendKey != "" {
		slog.Info("email_sender_configured", "provider", "resend", "from", cfg.Email.From)
		return emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
	}
	if cfg.Production() {
		slog.Warn("email_delivery_disabled", "hint", "set STOREFRONT_EMAIL_RESEND_KEY")
	} else {
		slog.Info("email_sender_configured", "provider", "noop")
	}
	return emailPkg.NewNoopSender()
}
