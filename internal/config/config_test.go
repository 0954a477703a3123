package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", c.App.Port)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, 3, c.Storage.TxRetries)
	assert.Equal(t, 24*time.Hour, c.Idempotency.TTL)
	assert.Equal(t, DefaultEarnExpression, c.Loyalty.EarnExpression)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: "9090"
storage:
  driver: memory
idempotency:
  backend: "off"
loyalty:
  earn_expression: "total / 100"
`), 0o600))

	t.Setenv("BLOOM_APP_ENV", "production")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", c.App.Port)
	assert.Equal(t, "production", c.App.Env)
	assert.False(t, c.App.IsDevelopment())
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "total / 100", c.Loyalty.EarnExpression)
}

func TestValidate(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	bad := c
	bad.Storage.Driver = "mongo"
	assert.Error(t, bad.Validate())

	bad = c
	bad.Storage.Driver = "memory"
	assert.Error(t, bad.Validate(), "postgres idempotency needs postgres storage")

	bad.Idempotency.Backend = "redis"
	assert.NoError(t, bad.Validate())

	bad.Storage.TxRetries = 0
	assert.Error(t, bad.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", c.App.Port)
}
