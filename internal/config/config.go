// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config captures everything the daemon and its clients read from the environment.
type Config struct {
	DataDir    string `env:"CELERIX_DATA_DIR" envDefault:"./data"`
	Port       string `env:"CELERIX_PORT" envDefault:"7001"`
	HTTPPort   string `env:"CELERIX_HTTP_PORT" envDefault:"7002"`
	DisableTLS bool   `env:"CELERIX_DISABLE_TLS"`

	Backend    string `env:"CELERIX_BACKEND" envDefault:"file"`
	SQLitePath string `env:"CELERIX_SQLITE_PATH"`
	RedisURL   string `env:"CELERIX_REDIS_URL"`

	// TrackAssets credits each new record's creator with one asset.
	TrackAssets bool `env:"CELERIX_TRACK_ASSETS"`
	// FieldEncoding selects how names and metadata are stored: text or bytes.
	FieldEncoding string `env:"CELERIX_FIELD_ENCODING" envDefault:"text"`

	LogLevel string `env:"CELERIX_LOG_LEVEL" envDefault:"info"`

	// StoreAddr is the daemon address used by clients; empty means embedded mode.
	StoreAddr string `env:"CELERIX_STORE_ADDR"`
	// VaultPassphrase enables client-side metadata sealing in the CLI.
	VaultPassphrase string `env:"CELERIX_VAULT_PASSPHRASE"`
}

// FromEnv parses and validates the configuration.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.FieldEncoding = strings.ToLower(strings.TrimSpace(cfg.FieldEncoding))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("CELERIX_REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.FieldEncoding {
	case "text", "bytes":
	default:
		return fmt.Errorf("unknown field encoding %q", c.FieldEncoding)
	}
	return nil
}

// SQLiteFile returns the database path, defaulting to a file in DataDir.
func (c Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return strings.TrimRight(c.DataDir, "/") + "/passports.db"
}
