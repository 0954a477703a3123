package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/tx"
	"bloomledger/pkg/logger"
)

var tracer = otel.Tracer("bloomledger/tx")

var (
	_ tx.ReadOnlyManager = (*TxManager)(nil)
	_ tx.InTransaction   = (*TxManager)(nil)
)

// DefaultMaxAttempts bounds conflict retries of one transaction.
const DefaultMaxAttempts = 3

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration

	// UseSavepoint creates savepoint for nested transactions
	UseSavepoint bool
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// ConflictObserver is notified when a transaction attempt loses a race.
type ConflictObserver interface {
	ObserveTxConflict(store string)
}

// TxManager manages database transactions with support for:
//   - Nested transactions (joined, or savepoints on request)
//   - Retry of the whole function on serialization failures, deadlocks and
//     races reported as tx.ErrConflict
//   - Statement timeout protection
//   - Distributed tracing integration
type TxManager struct {
	pool        *pgxpool.Pool
	maxAttempts int
	observer    ConflictObserver
}

// NewTxManager creates a new transaction manager. maxAttempts <= 0 selects
// DefaultMaxAttempts.
func NewTxManager(pool *Pool, maxAttempts int, observer ConflictObserver) *TxManager {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &TxManager{pool: pool.Pool, maxAttempts: maxAttempts, observer: observer}
}

// txKey is the context key for active transaction.
type txKey struct{}

// Tx wraps pgx.Tx with metadata.
type Tx struct {
	pgx.Tx
}

// InTransaction reports whether ctx carries a transaction.
func (m *TxManager) InTransaction(ctx context.Context) bool {
	return m.GetTx(ctx) != nil
}

// RunInTransaction executes fn within a transaction.
// If a transaction already exists in ctx, it will be reused (nested transaction).
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, DefaultTxOptions(), fn)
}

// RunInTransactionWithOptions executes fn with custom transaction options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	if existing := m.GetTx(ctx); existing != nil {
		return m.handleNestedTransaction(ctx, existing, opts, fn)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.store", "postgres"),
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
		))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := m.startNewTransaction(ctx, opts, fn)
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
			m.observer.ObserveTxConflict("postgres")
		}
		logger.Debug(ctx, "transaction conflict, retrying", "attempt", attempt, "error", err)
	}

	span.RecordError(lastErr)
	return apperror.NewConcurrentModification("transaction", nil).WithCause(lastErr)
}

// startNewTransaction runs one attempt. Errors raised before or by COMMIT
// that Postgres reports as serialization failures come back as
// tx.ErrConflict; any other commit failure leaves the outcome unknown.
func (m *TxManager) startNewTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.StatementTimeout > 0 {
		_, err = pgTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = pgTx.Rollback(context.Background())
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	txCtx := context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx})
	if err := fn(txCtx); err != nil {
		// Rollback must complete even if ctx was canceled.
		if rbErr := pgTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return asConflict(err)
	}

	if err := pgTx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: commit: %w", tx.ErrConflict, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// handleNestedTransaction reuses the outer transaction, or wraps fn in a
// savepoint when asked to.
func (m *TxManager) handleNestedTransaction(ctx context.Context, existing *Tx, opts TxOptions, fn func(ctx context.Context) error) error {
	if !opts.UseSavepoint {
		return fn(ctx)
	}

	savepointName := fmt.Sprintf("sp_%d", time.Now().UnixNano())
	if _, err := existing.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := existing.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			logger.Error(ctx, "rollback to savepoint failed", "savepoint", savepointName, "error", rbErr)
		}
		return err
	}

	if _, err := existing.Exec(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// asConflict marks serialization failures and deadlocks as retryable.
func asConflict(err error) error {
	if tx.IsConflict(err) || !isSerializationFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %w", tx.ErrConflict, err)
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is satisfied by both the pool and a transaction, so repos work
// inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns appropriate querier for context.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}

// ReadOnly executes fn in a read-only transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := DefaultTxOptions()
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}

// Pool exposes the underlying pool for components that manage their own
// statements (numerator, migrations).
func (m *TxManager) Pool() *pgxpool.Pool {
	return m.pool
}
