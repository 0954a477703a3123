package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"bloomledger/internal/core/apperror"
)

// SQLSTATE codes the repositories react to.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isSerializationFailure(err error) bool {
	pgErr, ok := pgError(err)
	return ok && (pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected)
}

// MapError converts constraint violations into AppErrors. field names the
// unique key of entity; value is reported back to the caller.
func MapError(err error, entity, field, value string) error {
	pgErr, ok := pgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case sqlStateUniqueViolation:
		return apperror.NewDuplicate(entity, field, value).WithCause(err)
	case sqlStateCheckViolation:
		if strings.Contains(pgErr.ConstraintName, "stock") {
			return apperror.NewValidation("stock must not be negative").WithCause(err)
		}
		return apperror.NewValidation(pgErr.Message).WithCause(err)
	}
	return err
}
