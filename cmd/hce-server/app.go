package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hcevision/cardio/internal/config"
	"github.com/hcevision/cardio/internal/domain/extraction"
	"github.com/hcevision/cardio/internal/domain/patient"
	"github.com/hcevision/cardio/internal/platform/db"
	"github.com/hcevision/cardio/internal/platform/diagnostics"
	"github.com/hcevision/cardio/internal/platform/metrics"
	"github.com/hcevision/cardio/internal/platform/middleware"
)

// app holds the HTTP server and everything that must be closed with it.
type app struct {
	echo    *echo.Echo
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	store, pinger, err := a.openStore(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.RedisURL != "" {
		client, err := patient.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		store = patient.NewCachedStore(store, patient.NewRedisKVStore(client), cfg.CacheTTL, logger)
		logger.Info().Dur("ttl", cfg.CacheTTL).Msg("record cache enabled")
	}

	sink, err := diagnostics.NewFileSink(cfg.DiagnosticsDir)
	if err != nil {
		a.Close()
		return nil, err
	}

	svc := patient.NewService(store, newExtractor(cfg, logger), logger)
	a.echo = newEcho(cfg, logger, svc, sink, pinger)
	return a, nil
}

// openStore returns the configured record store. The pinger is nil unless the
// store is backed by Postgres.
func (a *app) openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (patient.Store, db.Pinger, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:             cfg.DatabaseURL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			ApplicationName: "hce-server",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info().Msg("connected to database")
		return patient.NewPGStore(pool), pool, nil

	case config.StoreBolt:
		bdb, err := patient.OpenBoltDB(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() { bdb.Close() })
		logger.Info().Str("path", cfg.BoltPath).Msg("opened embedded store")
		return patient.NewBoltStore(bdb), nil, nil

	case config.StoreMemory:
		logger.Warn().Msg("using in-memory store, records are lost on restart")
		return patient.NewMemoryStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newExtractor(cfg *config.Config, logger zerolog.Logger) extraction.Adapter {
	if cfg.ExtractionProvider == config.ProviderStatic {
		logger.Warn().Msg("static extraction provider serves a sample draft for every document")
		return extraction.NewStatic(extraction.SampleDraft())
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set, every extraction returns the fallback draft")
	}
	return extraction.NewGeminiAdapter(extraction.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.ExtractionTimeout,
	}, logger)
}

func newEcho(cfg *config.Config, logger zerolog.Logger, svc *patient.Service, sink diagnostics.Sink, pinger db.Pinger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware. Recovery is innermost so every outer layer sees the
	// 500 it produces.
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(diagnostics.Capture(sink, logger))
	secCfg := middleware.SecurityHeadersConfig{}
	if cfg.IsProduction() {
		secCfg.HSTSMaxAge = 365 * 24 * time.Hour
	}
	e.Use(middleware.SecurityHeaders(secCfg))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/metrics", "/health"))
	e.Use(middleware.Recovery(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if pinger != nil {
		e.GET("/health/db", db.HealthHandler(pinger))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	rateLimitCfg.BurstSize = cfg.RateLimitBurst
	api := e.Group("", middleware.RateLimit(rateLimitCfg))

	patient.NewHandler(svc).RegisterRoutes(api)
	diagnostics.NewHandler(sink, logger).RegisterRoutes(api)

	return e
}
