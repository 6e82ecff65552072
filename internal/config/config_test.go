package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, "mode: debug\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 20, cfg.Chat.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Chat.RateInterval)
	assert.Equal(t, 4000, cfg.Chat.MaxLength)
	assert.Equal(t, "drop", cfg.Policy.SlowConsumer)
}

func TestLoadFileValuesAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
mode: release
port: 9090
auth:
  secret: from-file
store:
  driver: postgres
  dsn: postgres://localhost/roomcast
chat:
  rate_limit: 0
policy:
  slow_consumer: kick
`)
	t.Setenv("ROOMCAST_AUTH_SECRET", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 0, cfg.Chat.RateLimit)
	assert.Equal(t, "kick", cfg.Policy.SlowConsumer)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "mode: release\n")
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "auth.secret")

	path = writeConfig(t, "mode: debug\nstore:\n  driver: mongo\n")
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "store.driver")

	path = writeConfig(t, "mode: debug\npolicy:\n  slow_consumer: ban\n")
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "slow_consumer")
}
