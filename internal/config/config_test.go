package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	d := Default()
	assert.Equal(t, d.Logging, cfg.Logging)
	assert.Equal(t, d.Storage, cfg.Storage)
	assert.Equal(t, d.Randomizer, cfg.Randomizer)
	assert.Equal(t, d.Server.Address, cfg.Server.Address)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "mtg-life-tracker-state", cfg.Storage.Key)
	assert.Equal(t, 11, cfg.Randomizer.DieFrames)
	assert.Equal(t, 80*time.Millisecond, cfg.Randomizer.DieInterval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
storage:
  driver: sqlite
  path: /tmp/tracker.db
server:
  address: ":9090"
  allowed_origins: ["http://localhost:5173"]
  intent_burst: 5
randomizer:
  coin_interval: 50ms
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/tracker.db", cfg.Storage.Path)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Server.IntentBurst)
	assert.Equal(t, 50*time.Millisecond, cfg.Randomizer.CoinInterval)
	assert.Equal(t, 9, cfg.Randomizer.CoinFrames)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRACKER_STORAGE_DRIVER", "memory")
	t.Setenv("TRACKER_LOGGING_LEVEL", "warn")
	t.Setenv("TRACKER_RANDOMIZER_DIE_FRAMES", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Randomizer.DieFrames)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = DriverSQLite; c.Storage.Path = "" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"empty key", func(c *Config) { c.Storage.Key = "" }},
		{"zero timeout", func(c *Config) { c.Storage.Timeout = 0 }},
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"zero burst", func(c *Config) { c.Server.IntentBurst = 0 }},
		{"negative frames", func(c *Config) { c.Randomizer.DieFrames = -1 }},
		{"zero interval", func(c *Config) { c.Randomizer.CoinInterval = 0 }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
