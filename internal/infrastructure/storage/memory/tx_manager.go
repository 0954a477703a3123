package memory

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/tx"
	"bloomledger/pkg/logger"
)

var tracer = otel.Tracer("bloomledger/memory/tx")

var (
	_ tx.Manager       = (*TxManager)(nil)
	_ tx.InTransaction = (*TxManager)(nil)
)

// DefaultMaxAttempts bounds conflict retries of one transaction.
const DefaultMaxAttempts = 5

// ConflictObserver is notified when a transaction attempt loses a race.
type ConflictObserver interface {
	ObserveTxConflict(store string)
}

// TxManager runs functions in optimistic transactions over a Store.
// A conflict found at commit discards the attempt and runs fn again against
// fresh data; after maxAttempts the caller gets CONCURRENT_MODIFICATION.
type TxManager struct {
	store       *Store
	maxAttempts int
	observer    ConflictObserver
}

// NewTxManager creates a transaction manager. maxAttempts <= 0 selects
// DefaultMaxAttempts.
func NewTxManager(store *Store, maxAttempts int, observer ConflictObserver) *TxManager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &TxManager{store: store, maxAttempts: maxAttempts, observer: observer}
}

// InTransaction reports whether ctx carries a transaction.
func (m *TxManager) InTransaction(ctx context.Context) bool {
	return txnFrom(ctx) != nil
}

// RunInTransaction executes fn within a transaction. Nested calls join the
// outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txnFrom(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("tx.store", "memory")))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := newTxn(m.store)
		err := fn(context.WithValue(ctx, txnKey{}, t))
		if err == nil {
			err = t.commit()
		}
		if err == nil {
			span.SetAttributes(attribute.Int("tx.attempts", attempt))
			return nil
		}
		if !tx.IsConflict(err) {
			span.RecordError(err)
			return err
		}

		lastErr = err
		if m.observer != nil {
			m.observer.ObserveTxConflict("memory")
		}
		logger.Debug(ctx, "transaction conflict, retrying", "attempt", attempt, "error", err)
	}

	span.RecordError(lastErr)
	return apperror.NewConcurrentModification("transaction", nil).WithCause(lastErr)
}

// ReadOnly runs fn in a transaction whose writes are discarded.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if txnFrom(ctx) != nil {
		return fn(ctx)
	}
	return fn(context.WithValue(ctx, txnKey{}, newTxn(m.store)))
}
