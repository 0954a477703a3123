// Package main is the entry point for the BloomLedger API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloomledger/internal/app"
	"bloomledger/internal/config"
	"bloomledger/internal/infrastructure/auth"
	v1 "bloomledger/internal/infrastructure/http/v1"
	"bloomledger/internal/infrastructure/http/v1/handlers"
	"bloomledger/internal/infrastructure/http/v1/middleware"
	"bloomledger/internal/infrastructure/metrics"
	"bloomledger/internal/infrastructure/storage"
	"bloomledger/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()
	log.Infow("starting bloomledger server", "storage", cfg.Storage.Driver, "env", cfg.App.Env)

	var (
		collector *metrics.Collector
		observer  storage.ConflictObserver
	)
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		observer = collector
	}

	// --- Storage ---
	backend, err := storage.Open(ctx, cfg, observer)
	if err != nil {
		log.Fatalw("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer backend.Close()
	if err := backend.Ping(ctx); err != nil {
		log.Fatalw("storage is not reachable", "error", err)
	}

	services, err := app.New(backend, cfg.Loyalty, collector)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	// --- Idempotency keys ---
	keys, err := app.OpenIdempotency(ctx, cfg, backend)
	if err != nil {
		log.Fatalw("failed to open idempotency store", "backend", cfg.Idempotency.Backend, "error", err)
	}
	defer keys.Close()
	checks := map[string]handlers.Checker{}
	if keys.Ping != nil {
		checks["idempotency"] = keys.Ping
	}

	// --- Auth ---
	jwtService, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatalw("invalid jwt configuration", "error", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
		go sweepLimiter(ctx, limiter)
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		Services:     services,
		Backend:      backend,
		Validator:    jwtService,
		Idempotency:  keys.Store,
		Metrics:      collector,
		RateLimiter:  limiter,
		CORS:         cfg.CORS,
		HealthChecks: checks,
		Development:  cfg.App.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port, "idempotency", cfg.Idempotency.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if backend.Pool != nil {
		backend.Pool.LogStats(shutdownCtx)
	}

	log.Info("server stopped")
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				logger.Debug(ctx, "rate limiter swept", "clients", n)
			}
		}
	}
}
