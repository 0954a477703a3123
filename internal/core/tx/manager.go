// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the postgres and in-memory
// stores provide the implementations.
package tx

import (
	"context"
	"errors"
)

// ErrConflict marks a transaction that lost a race against a concurrent writer
// before anything was committed. Managers retry the whole function on it.
var ErrConflict = errors.New("transaction conflict")

// IsConflict reports whether err is (or wraps) ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	// fn may be invoked more than once when the store reports a conflict,
	// so it must derive all of its writes from state read inside fn.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// InTransaction reports whether ctx already carries a transaction.
type InTransaction interface {
	InTransaction(ctx context.Context) bool
}
