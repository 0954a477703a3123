// Package idempotency defines the key store behind the X-Idempotency-Key
// header. Backends: postgres, redis and memory.
package idempotency

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bloomledger/internal/core/apperror"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may go without completion before
// another request may reclaim it.
const StaleAfter = time.Minute

// Record stores the result of an idempotent operation.
type Record struct {
	Key         string    `db:"idempotency_key" json:"key"`
	UserID      string    `db:"user_id" json:"userId"`
	Operation   string    `db:"operation" json:"operation"`
	Status      Status    `db:"status" json:"status"`
	RequestHash string    `db:"request_hash" json:"requestHash"`
	Response    []byte    `db:"response" json:"response,omitempty"`
	StatusCode  int       `db:"response_status" json:"statusCode,omitempty"`
	ContentType string    `db:"response_content_type" json:"contentType,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
}

// Replay is the cached HTTP response for replay.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller now owns the key,
	// a Replay when the operation already finished, and an error when the
	// key is in flight or was used for a different request.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)
	// CompleteKey stores a successful response.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	// FailKey stores a failed response.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	// CleanupExpired removes expired keys.
	CleanupExpired(ctx context.Context) (int64, error)
}

// Decision is the outcome of Evaluate for an existing record.
type Decision int

const (
	// Reclaim means the pending record is stale and the caller takes over.
	Reclaim Decision = iota
	// ReplayStored means the stored response should be returned.
	ReplayStored
	// Reject means the request must be refused with the returned error.
	Reject
)

// Evaluate decides what to do with an existing record for a new request.
func Evaluate(rec *Record, userID, operation, requestHash string, now time.Time) (Decision, *Replay, error) {
	if rec.UserID != userID || rec.Operation != operation || rec.RequestHash != requestHash {
		return Reject, nil, apperror.NewIdempotencyMismatch(rec.Key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}
	switch rec.Status {
	case StatusSuccess, StatusFailed:
		return ReplayStored, &Replay{
			StatusCode:  normalizeStatus(rec.StatusCode),
			ContentType: normalizeContentType(rec.ContentType),
			Body:        rec.Response,
		}, nil
	}
	if now.Sub(rec.UpdatedAt) > StaleAfter {
		return Reclaim, nil, nil
	}
	return Reject, nil, apperror.NewIdempotencyConflict(rec.Key)
}

// EncodeResponse marshals a response body. Marshal errors yield a minimal
// error body so the key stays consistent.
func EncodeResponse(response any) []byte {
	if response == nil {
		return nil
	}
	if raw, ok := response.([]byte); ok {
		return raw
	}
	b, err := json.Marshal(response)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return b
}

func normalizeStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

func normalizeContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
