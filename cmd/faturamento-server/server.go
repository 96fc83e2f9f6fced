package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medimagem/faturamento/internal/config"
	"github.com/medimagem/faturamento/internal/domain/billing"
	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/pricing"
	"github.com/medimagem/faturamento/internal/domain/reconciliation"
	"github.com/medimagem/faturamento/internal/domain/statement"
	"github.com/medimagem/faturamento/internal/domain/volume"
	"github.com/medimagem/faturamento/internal/platform/auth"
	"github.com/medimagem/faturamento/internal/platform/db"
	"github.com/medimagem/faturamento/internal/platform/invoicing"
	"github.com/medimagem/faturamento/internal/platform/middleware"
	"github.com/medimagem/faturamento/internal/platform/websocket"
)

// app holds every service, built once from config and a database handle.
type app struct {
	clientRepo  clients.Repository
	volumeRepo  volume.Repository
	billingRepo billing.Repository

	hub        *websocket.Hub
	reconciler *reconciliation.Service
	refresher  *reconciliation.Refresher
	statements *statement.Service
	progress   *statement.ProgressStore

	// invoicer is nil when no invoicing system is configured.
	invoicer *invoicing.Worker
}

func newApp(cfg *config.Config, q db.Querier, logger zerolog.Logger) *app {
	a := &app{
		clientRepo:  clients.NewRepoPG(q),
		volumeRepo:  volume.NewRepoPG(q),
		billingRepo: billing.NewRepoPG(q),
		hub:         websocket.NewHub(logger),
	}

	a.reconciler = reconciliation.NewService(a.volumeRepo, a.billingRepo, a.clientRepo, cfg.NonChargeableTag, logger)
	a.refresher = reconciliation.NewRefresher(a.reconciler, a.hub, logger)

	lookup := pricing.NewPGLookup(q)
	if cfg.PricingRPS > 0 {
		lookup = pricing.RateLimited(lookup, cfg.PricingRPS)
	}
	resolver := pricing.NewResolver(lookup, cfg.PricingConcurrency, cfg.PricingStrictVolumeRule, logger)

	kv := statement.NewPGKV(q)
	a.progress = statement.NewProgressStore(kv)
	a.statements = statement.NewService(a.volumeRepo, a.clientRepo, statement.NewRepoPG(q), resolver,
		statement.NewCache(kv), a.hub, statement.Options{
			NonChargeableTag: cfg.NonChargeableTag,
			PollAttempts:     cfg.StatementPollAttempts,
			PollInterval:     cfg.StatementPollInterval,
		}, logger)

	if cfg.InvoicingBaseURL != "" {
		client := invoicing.NewClient(cfg.InvoicingBaseURL, cfg.InvoicingAPIKey,
			invoicing.WithRetry(cfg.InvoicingMaxRetries, cfg.InvoicingBaseDelay),
			invoicing.WithRateLimit(cfg.InvoicingRPS))
		a.invoicer = invoicing.NewWorker(invoicing.NewPGStore(q), client, cfg.InvoicingPollInterval, logger)
	}
	return a
}

func newEcho(cfg *config.Config, a *app, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	headers := middleware.SecurityHeadersConfig{PublicPrefixes: []string{"/health"}}
	if cfg.IsProduction() {
		headers.HSTSMaxAge = 365 * 24 * time.Hour
	}
	e.Use(middleware.SecurityHeaders(headers))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	if pool != nil {
		e.GET("/health", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	}

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))

	clients.NewHandler(a.clientRepo).RegisterRoutes(apiV1)
	volume.NewHandler(a.volumeRepo).RegisterRoutes(apiV1)
	billing.NewHandler(a.billingRepo).RegisterRoutes(apiV1)
	reconciliation.NewHandler(a.refresher).RegisterRoutes(apiV1)
	statement.NewHandler(a.statements, a.progress).RegisterRoutes(apiV1)
	websocket.NewHandler(a.hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, pool, logger, err := bootstrap(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer pool.Close()
	logger.Info().Str("env", cfg.Env).Msg("connected to database")

	a := newApp(cfg, pool, logger)
	e := newEcho(cfg, a, pool, logger)

	listener := db.NewListener(pool, db.ChangeChannel, logger)
	go listener.Run(ctx, a.refresher.HandleNotification(ctx))

	if a.invoicer != nil {
		go a.invoicer.Run(ctx)
	} else {
		logger.Info().Msg("INVOICING_BASE_URL not set, invoicing sync disabled")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
