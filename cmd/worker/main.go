// Package main is the entry point for the BloomLedger background worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bloomledger/internal/app"
	"bloomledger/internal/config"
	"bloomledger/internal/infrastructure/idempotency"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting bloomledger worker", "interval", cfg.Worker.CleanupInterval)

	backend, err := storage.Open(ctx, cfg, nil)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	keys, err := app.OpenIdempotency(ctx, cfg, backend)
	if err != nil {
		log.Fatalw("failed to open idempotency store", "error", err)
	}
	defer keys.Close()
	if keys.Store == nil {
		log.Info("idempotency is off, nothing to do")
		return
	}

	worker := NewWorker(keys.Store, cfg.Worker.CleanupInterval, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker removes expired idempotency keys on a fixed interval.
type Worker struct {
	store    idempotency.Store
	interval time.Duration
	log      *logger.Logger
}

func NewWorker(store idempotency.Store, interval time.Duration, log *logger.Logger) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		store:    store,
		interval: interval,
		log:      log.WithComponent("worker"),
	}
}

// Run cleans once immediately, then on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.cleanupIdempotency(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanupIdempotency(ctx)
		}
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	removed, err := w.store.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}
