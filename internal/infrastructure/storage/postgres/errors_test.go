package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/core/tx"
)

func TestMapError(t *testing.T) {
	unique := fmt.Errorf("insert items: %w", &pgconn.PgError{Code: sqlStateUniqueViolation, ConstraintName: "items_active_key"})
	err := MapError(unique, "item", "code", "product/R001@Gangnam")
	assert.True(t, apperror.IsDuplicate(err))

	check := &pgconn.PgError{Code: sqlStateCheckViolation, ConstraintName: "items_stock_non_negative"}
	assert.True(t, apperror.HasCode(MapError(check, "item", "id", "x"), apperror.CodeValidation))

	plain := errors.New("connection reset")
	assert.Same(t, plain, MapError(plain, "item", "id", "x"))
}

func TestAsConflict(t *testing.T) {
	serialization := fmt.Errorf("update: %w", &pgconn.PgError{Code: sqlStateSerializationFailure})
	assert.True(t, tx.IsConflict(asConflict(serialization)))

	deadlock := &pgconn.PgError{Code: sqlStateDeadlockDetected}
	assert.True(t, tx.IsConflict(asConflict(deadlock)))

	already := fmt.Errorf("%w: duplicate contact", tx.ErrConflict)
	assert.Same(t, already, asConflict(already))

	other := apperror.NewInsufficientStock("R001", "Red rose", 3, 1)
	assert.False(t, tx.IsConflict(asConflict(other)))
}
