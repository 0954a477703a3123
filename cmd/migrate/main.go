// Package main applies or reports the embedded postgres schema migrations.
//
// Usage:
//
//	migrate [-config config.yaml] up|status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bloomledger/internal/config"
	"bloomledger/internal/infrastructure/storage/postgres"
	"bloomledger/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver != "postgres" {
		fmt.Printf("migrations need storage.driver=postgres, got %q\n", cfg.Storage.Driver)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg.Storage))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	switch command {
	case "up":
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalw("migration failed", "error", err)
		}
	case "status":
		version, err := postgres.MigrationStatus(ctx, pool)
		if err != nil {
			log.Fatalw("failed to read schema version", "error", err)
		}
		fmt.Printf("schema version: %d\n", version)
	default:
		log.Fatalw("unknown command", "command", command)
	}
}
