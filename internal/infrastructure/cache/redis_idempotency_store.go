// Package cache holds Redis-backed infrastructure shared by several
// service instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bloomledger/internal/config"
	"bloomledger/internal/core/apperror"
	"bloomledger/internal/infrastructure/idempotency"
)

const defaultKeyPrefix = "bloomledger:idempotency:"

var _ idempotency.Store = (*RedisIdempotencyStore)(nil)

// RedisIdempotencyStore keeps idempotency records as JSON values with a TTL.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisIdempotencyStore creates a store on an existing client.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisIdempotencyStore) redisKey(key string) string {
	return s.keyPrefix + key
}

// AcquireKey claims the key with SETNX or evaluates the stored record.
func (s *RedisIdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now()
	rec := idempotency.Record{
		Key:         key,
		UserID:      userID,
		Operation:   operation,
		Status:      idempotency.StatusPending,
		RequestHash: requestHash,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}

	rk := s.redisKey(key)
	ok, err := s.client.SetNX(ctx, rk, payload, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	var replay *idempotency.Replay
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := load(ctx, tx, rk)
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET.
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, rk, payload, s.ttl)
				return nil
			})
			return err
		}
		if err != nil {
			return err
		}

		decision, r, evalErr := idempotency.Evaluate(existing, userID, operation, requestHash, now)
		switch decision {
		case idempotency.ReplayStored:
			replay = r
			return nil
		case idempotency.Reject:
			return evalErr
		}

		existing.UpdatedAt = now
		reclaimed, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.SetArgs(ctx, rk, reclaimed, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, rk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("evaluate idempotency key: %w", err)
	}
	return replay, nil
}

func load(ctx context.Context, c redis.Cmdable, rk string) (*idempotency.Record, error) {
	raw, err := c.Get(ctx, rk).Bytes()
	if err != nil {
		return nil, err
	}
	var rec idempotency.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

// CompleteKey stores a successful response.
func (s *RedisIdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey stores a failed response.
func (s *RedisIdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *RedisIdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	rk := s.redisKey(key)
	rec, err := load(ctx, s.client, rk)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}

	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.Response = idempotency.EncodeResponse(response)
	rec.UpdatedAt = s.now()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.client.SetArgs(ctx, rk, payload, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired is a no-op: Redis expires keys itself.
func (s *RedisIdempotencyStore) CleanupExpired(context.Context) (int64, error) {
	return 0, nil
}

// Ping checks the connection.
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
