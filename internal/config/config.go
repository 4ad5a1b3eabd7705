// Package config loads tracker configuration from an optional file and
// TRACKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Randomizer RandomizerConfig `mapstructure:"randomizer"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects where the match snapshot is kept.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the directory for the file driver and the database file for
	// the sqlite driver.
	Path    string        `mapstructure:"path"`
	DSN     string        `mapstructure:"dsn"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the local HTTP/websocket bridge.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	IntentRate      float64       `mapstructure:"intent_rate"`
	IntentBurst     int           `mapstructure:"intent_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RandomizerConfig sets the die and coin animation pacing.
type RandomizerConfig struct {
	DieFrames    int           `mapstructure:"die_frames"`
	DieInterval  time.Duration `mapstructure:"die_interval"`
	CoinFrames   int           `mapstructure:"coin_frames"`
	CoinInterval time.Duration `mapstructure:"coin_interval"`
}

// Load reads configuration from path, if it exists, on top of the defaults.
// Environment variables such as TRACKER_STORAGE_DRIVER override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Storage: StorageConfig{
			Driver:  DriverFile,
			Path:    "data",
			Key:     "mtg-life-tracker-state",
			Timeout: 2 * time.Second,
		},
		Server: ServerConfig{
			Address:         "127.0.0.1:8080",
			IntentRate:      20,
			IntentBurst:     40,
			ShutdownTimeout: 5 * time.Second,
		},
		Randomizer: RandomizerConfig{
			DieFrames:    11,
			DieInterval:  80 * time.Millisecond,
			CoinFrames:   9,
			CoinInterval: 100 * time.Millisecond,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("storage.timeout", d.Storage.Timeout)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.intent_rate", d.Server.IntentRate)
	v.SetDefault("server.intent_burst", d.Server.IntentBurst)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("randomizer.die_frames", d.Randomizer.DieFrames)
	v.SetDefault("randomizer.die_interval", d.Randomizer.DieInterval)
	v.SetDefault("randomizer.coin_frames", d.Randomizer.CoinFrames)
	v.SetDefault("randomizer.coin_interval", d.Randomizer.CoinInterval)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key must not be empty")
	}
	if c.Storage.Timeout <= 0 {
		return errors.New("storage.timeout must be positive")
	}

	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}
	if c.Server.IntentRate <= 0 || c.Server.IntentBurst < 1 {
		return errors.New("server.intent_rate must be positive and server.intent_burst at least 1")
	}

	if c.Randomizer.DieFrames < 0 || c.Randomizer.CoinFrames < 0 {
		return errors.New("randomizer frame counts must not be negative")
	}
	if c.Randomizer.DieInterval <= 0 || c.Randomizer.CoinInterval <= 0 {
		return errors.New("randomizer intervals must be positive")
	}
	return nil
}
