package postgres

import (
	"context"
	"fmt"
	"time"

	"bloomledger/internal/core/apperror"
	"bloomledger/internal/infrastructure/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

const acquireSQL = `
	INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
	ON CONFLICT (idempotency_key) DO UPDATE SET
		idempotency_key = EXCLUDED.idempotency_key
	RETURNING (xmax = 0) AS inserted,
		idempotency_key, user_id, operation, status, request_hash,
		COALESCE(response, ''::bytea), COALESCE(response_status, 0), COALESCE(response_content_type, ''),
		created_at, updated_at, expires_at`

// AcquireKey inserts a pending key or evaluates the existing one.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now()
	querier := s.txManager.GetQuerier(ctx)

	var (
		inserted bool
		rec      idempotency.Record
	)
	err := querier.QueryRow(ctx, acquireSQL,
		key, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl),
	).Scan(
		&inserted,
		&rec.Key, &rec.UserID, &rec.Operation, &rec.Status, &rec.RequestHash,
		&rec.Response, &rec.StatusCode, &rec.ContentType,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if inserted {
		return nil, nil
	}

	// An expired record no longer binds the key.
	if now.After(rec.ExpiresAt) {
		return nil, s.reset(ctx, key, userID, operation, requestHash, now)
	}

	decision, replay, err := idempotency.Evaluate(&rec, userID, operation, requestHash, now)
	switch decision {
	case idempotency.ReplayStored:
		return replay, nil
	case idempotency.Reject:
		return nil, err
	}

	tag, err := querier.Exec(ctx, `
		UPDATE sys_idempotency
		SET updated_at = $1
		WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
	`, now, key, idempotency.StatusPending, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Another request reclaimed or finished it first.
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

func (s *IdempotencyStore) reset(ctx context.Context, key, userID, operation, requestHash string, now time.Time) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET user_id = $1, operation = $2, status = $3, request_hash = $4,
		    response = NULL, response_status = NULL, response_content_type = NULL,
		    created_at = $5, updated_at = $5, expires_at = $6
		WHERE idempotency_key = $7
	`, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl), key)
	if err != nil {
		return fmt.Errorf("reset expired key: %w", err)
	}
	return nil
}

// CompleteKey stores a successful response.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey stores a failed response.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6
	`, status, idempotency.EncodeResponse(response), statusCode, contentType, s.now(), key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}
