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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "4001", cfg.Server.PlayerPort)
	assert.Equal(t, "4002", cfg.Server.GamePort)
	assert.Equal(t, "4003", cfg.Server.RequestPort)
	assert.Equal(t, "4000", cfg.Server.RealtimePort)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "tic-tac-toe", cfg.Database.Name)
	assert.Equal(t, DriverKafka, cfg.Bus.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Bus.Brokers)
	assert.Equal(t, 200*time.Millisecond, cfg.Bus.Retry.InitialInterval)
	assert.Zero(t, cfg.Bus.Retry.MaxAttempts)
	assert.Zero(t, cfg.Requests.TTL)
	assert.Equal(t, 30*time.Second, cfg.Games.AnnounceInterval)
	assert.Equal(t, 16, cfg.Realtime.BufferSize)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("BUS_DRIVER", "redis")
	t.Setenv("REQUESTS_TTL", "15m")
	t.Setenv("SERVER_GAME_PORT", "9002")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverRedis, cfg.Bus.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Requests.TTL)
	assert.Equal(t, "9002", cfg.Server.GamePort)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: memory
bus:
  driver: memory
  retry:
    max_attempts: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, DriverMemory, cfg.Bus.Driver)
	assert.Equal(t, 3, cfg.Bus.Retry.MaxAttempts)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(false))

	cfg.Bus.Driver = DriverMemory
	assert.Error(t, cfg.Validate(false))
	assert.NoError(t, cfg.Validate(true))

	cfg.Database.Driver = "sqlite"
	assert.Error(t, cfg.Validate(true))

	cfg.Database.Driver = DriverMemory
	cfg.Requests.TTL = time.Minute
	cfg.Requests.SweepInterval = 0
	assert.Error(t, cfg.Validate(true))

	cfg.Requests.SweepInterval = time.Minute
	require.NoError(t, cfg.Validate(true))
	cfg.Games.AnnounceInterval = -time.Second
	assert.Error(t, cfg.Validate(true))
}
