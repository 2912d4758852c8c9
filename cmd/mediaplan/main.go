package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radiusdt/mediaplan/internal/appmeta"
	"github.com/radiusdt/mediaplan/internal/benchmark"
	"github.com/radiusdt/mediaplan/internal/config"
	"github.com/radiusdt/mediaplan/internal/currency"
	"github.com/radiusdt/mediaplan/internal/database"
	"github.com/radiusdt/mediaplan/internal/httpserver"
	"github.com/radiusdt/mediaplan/internal/metrics"
	"github.com/radiusdt/mediaplan/internal/middleware"
	"github.com/radiusdt/mediaplan/internal/planner"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting mediaplan",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	m := metrics.NewMetrics("mediaplan", nil)

	// Benchmarks
	set := benchmark.DefaultSet()
	if cfg.Plan.BenchmarkFile != "" {
		set, err = benchmark.LoadFile(cfg.Plan.BenchmarkFile)
		if err != nil {
			logger.Fatal("failed to load benchmark file",
				zap.String("path", cfg.Plan.BenchmarkFile),
				zap.Error(err),
			)
		}
		logger.Info("loaded benchmark file", zap.String("path", cfg.Plan.BenchmarkFile))
	}

	currencies := currency.DefaultTable()
	resolver := benchmark.NewResolver(set, currencies, m)
	p := planner.New(
		resolver,
		currency.NewConverter(currencies, m),
		planner.NewAggregator(cfg.Plan.VATCountry, cfg.Plan.VATRate),
		planner.Defaults{Currency: cfg.Plan.DefaultCurrency, Vertical: cfg.Plan.DefaultVertical},
		logger,
		planner.WithMetrics(m),
	)

	// Try to connect to Redis
	var redis *database.RedisDB
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redis, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		cancel()
		if err != nil {
			logger.Warn("Redis not available, app lookups cached in memory", zap.Error(err))
			redis = nil
		} else {
			redis.SetMetrics(m)
			defer redis.Close()
		}
	}

	// App store lookups
	var appMeta *appmeta.Client
	if cfg.AppMeta.Enabled {
		var cache appmeta.Cache = appmeta.NewMemoryCache()
		if redis != nil {
			cache = appmeta.NewRedisCache(redis)
		}
		appMeta = appmeta.NewClient(cfg.AppMeta, cache, logger.Named("appmeta"), appmeta.WithMetrics(m))
	}

	// Create HTTP server
	deps := &httpserver.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Planner:    p,
		Resolver:   resolver,
		Currencies: currencies,
		AppMeta:    appMeta,
		Redis:      redis,
	}

	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	rateLimit.SetMetrics(m)
	auth := middleware.NewAuthMiddleware(cfg.Auth, logger)
	auth.SetMetrics(m)
	logging := middleware.NewLoggingMiddleware(logger)
	logging.SetMetrics(m)
	recovery := middleware.NewRecoveryMiddleware(logger)

	mux := httpserver.NewServer(deps)
	if router, ok := mux.(middleware.Router); ok {
		logging.SetRouter(router)
	}

	handler := rateLimit.Handler(mux)
	handler = auth.Handler(handler)
	handler = logging.Handler(handler)
	handler = recovery.Handler(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drop idle per-IP lookup limiters.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimit.CleanupIPLimiters(30 * time.Minute)
			}
		}
	}()

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
