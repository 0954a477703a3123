package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/config"
	"bloomledger/internal/infrastructure/storage"
)

func TestOpenIdempotency(t *testing.T) {
	backend := storage.NewMemory(3, nil, time.Hour)
	ctx := context.Background()

	keys, err := OpenIdempotency(ctx, config.Config{Idempotency: config.IdempotencyConfig{Backend: "off"}}, backend)
	require.NoError(t, err)
	assert.Nil(t, keys.Store)
	assert.NoError(t, keys.Close())

	keys, err = OpenIdempotency(ctx, config.Config{Idempotency: config.IdempotencyConfig{Backend: "postgres"}}, backend)
	require.NoError(t, err)
	assert.Same(t, backend.Idempotency, keys.Store)
	assert.Nil(t, keys.Ping)
}

func TestNew_WiresServices(t *testing.T) {
	backend := storage.NewMemory(3, nil, time.Hour)

	services, err := New(backend, config.LoyaltyConfig{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, services.Orders)
	assert.NotNil(t, services.Ledger)
	assert.NotNil(t, services.Policy)

	_, err = New(backend, config.LoyaltyConfig{EarnExpression: "total +"}, nil)
	assert.Error(t, err)
}
