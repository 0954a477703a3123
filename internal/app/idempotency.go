package app

import (
	"context"

	"bloomledger/internal/config"
	"bloomledger/internal/infrastructure/cache"
	"bloomledger/internal/infrastructure/idempotency"
	"bloomledger/internal/infrastructure/storage"
)

// IdempotencyKeys is the key store selected by configuration.
// Store is nil when idempotency is off.
type IdempotencyKeys struct {
	Store idempotency.Store
	// Ping is set when the store lives outside the backend.
	Ping  func(ctx context.Context) error
	close func() error
}

// Close releases the store's own connection, if any.
func (k *IdempotencyKeys) Close() error {
	if k.close == nil {
		return nil
	}
	return k.close()
}

// OpenIdempotency selects the X-Idempotency-Key store named by
// cfg.Idempotency.Backend. "postgres" uses the backend's own store, which for
// the memory driver is the in-process one.
func OpenIdempotency(ctx context.Context, cfg config.Config, backend *storage.Backend) (*IdempotencyKeys, error) {
	switch cfg.Idempotency.Backend {
	case "off":
		return &IdempotencyKeys{}, nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store := cache.NewRedisIdempotencyStore(client, "", cfg.Idempotency.TTL)
		return &IdempotencyKeys{Store: store, Ping: store.Ping, close: store.Close}, nil
	}
	return &IdempotencyKeys{Store: backend.Idempotency}, nil
}
