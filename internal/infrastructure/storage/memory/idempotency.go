package memory

import (
	"context"
	"sync"
	"time"

	"bloomledger/internal/infrastructure/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore keeps idempotency keys in process memory.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
	ttl     time.Duration
	now     func() time.Time
}

// NewIdempotencyStore creates an in-memory idempotency store.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*idempotency.Record),
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[key]
	if ok && now.After(rec.ExpiresAt) {
		ok = false
	}
	if ok {
		decision, replay, err := idempotency.Evaluate(rec, userID, operation, requestHash, now)
		switch decision {
		case idempotency.ReplayStored:
			return replay, nil
		case idempotency.Reject:
			return nil, err
		}
		rec.Status = idempotency.StatusPending
		rec.UpdatedAt = now
		return nil, nil
	}

	s.records[key] = &idempotency.Record{
		Key:         key,
		UserID:      userID,
		Operation:   operation,
		Status:      idempotency.StatusPending,
		RequestHash: requestHash,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	return nil, nil
}

func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
	return nil
}

func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
	return nil
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return
	}
	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.Response = idempotency.EncodeResponse(response)
	rec.UpdatedAt = s.now()
}

func (s *IdempotencyStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed int64
	for key, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
