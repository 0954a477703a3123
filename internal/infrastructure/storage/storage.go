// Package storage opens the configured backing store and exposes its
// repositories behind the domain interfaces.
package storage

import (
	"context"
	"fmt"
	"time"

	"bloomledger/internal/config"
	"bloomledger/internal/core/numerator"
	"bloomledger/internal/core/tx"
	"bloomledger/internal/domain/customer"
	"bloomledger/internal/domain/expense"
	"bloomledger/internal/domain/item"
	"bloomledger/internal/domain/order"
	"bloomledger/internal/domain/partner"
	"bloomledger/internal/domain/stockledger"
	"bloomledger/internal/infrastructure/audit"
	"bloomledger/internal/infrastructure/idempotency"
	"bloomledger/internal/infrastructure/storage/memory"
	"bloomledger/internal/infrastructure/storage/postgres"
	"bloomledger/internal/infrastructure/storage/postgres/catalog_repo"
	"bloomledger/internal/infrastructure/storage/postgres/document_repo"
	"bloomledger/internal/infrastructure/storage/postgres/register_repo"
	pgnumerator "bloomledger/pkg/numerator"
)

// ConflictObserver is notified when a transaction attempt loses a race.
type ConflictObserver interface {
	ObserveTxConflict(store string)
}

// Backend bundles the repositories of one store.
type Backend struct {
	Driver    string
	TxManager tx.Manager

	Items     item.Repository
	History   stockledger.HistoryRepository
	Customers customer.Repository
	Orders    order.Repository
	Partners  partner.Repository
	Expenses  expense.Repository
	Numerator numerator.Generator
	Audit     audit.Sink

	// Idempotency is the store's own key store.
	Idempotency idempotency.Store

	// Pool is set for the postgres driver.
	Pool *postgres.Pool

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks that the store answers.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases store resources.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg config.Config, observer ConflictObserver) (*Backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return NewMemory(cfg.Storage.TxRetries, observer, cfg.Idempotency.TTL), nil
	case "postgres":
		return openPostgres(ctx, cfg, observer)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// NewMemory creates an empty in-process backend.
func NewMemory(maxAttempts int, observer ConflictObserver, idempotencyTTL time.Duration) *Backend {
	var obs memory.ConflictObserver
	if observer != nil {
		obs = observer
	}
	b := memory.NewBackend(maxAttempts, obs, idempotencyTTL)
	return &Backend{
		Driver:      "memory",
		TxManager:   b.TxManager,
		Items:       b.Items,
		History:     b.History,
		Customers:   b.Customers,
		Orders:      b.Orders,
		Partners:    b.Partners,
		Expenses:    b.Expenses,
		Numerator:   b.Numerator,
		Audit:       b.Audit,
		Idempotency: b.Idempotency,
	}
}

func openPostgres(ctx context.Context, cfg config.Config, observer ConflictObserver) (*Backend, error) {
	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg.Storage))
	if err != nil {
		return nil, err
	}
	if cfg.Storage.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return NewPostgres(pool, cfg.Storage.TxRetries, observer, cfg.Idempotency.TTL), nil
}

// NewPostgres builds a backend over an open pool.
func NewPostgres(pool *postgres.Pool, maxAttempts int, observer ConflictObserver, idempotencyTTL time.Duration) *Backend {
	var obs postgres.ConflictObserver
	if observer != nil {
		obs = observer
	}
	txm := postgres.NewTxManager(pool, maxAttempts, obs)
	return &Backend{
		Driver:      "postgres",
		TxManager:   txm,
		Items:       catalog_repo.NewItemRepo(txm),
		History:     register_repo.NewHistoryRepo(txm),
		Customers:   catalog_repo.NewCustomerRepo(txm),
		Orders:      document_repo.NewOrderRepo(txm),
		Partners:    catalog_repo.NewPartnerRepo(txm),
		Expenses:    catalog_repo.NewExpenseRepo(txm),
		Numerator:   pgnumerator.New(pool.Pool),
		Audit:       postgres.NewAuditSink(txm),
		Idempotency: postgres.NewIdempotencyStore(txm, idempotencyTTL),
		Pool:        pool,
		ping:        pool.Ping,
		close:       pool.Close,
	}
}
