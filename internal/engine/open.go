package engine

import (
	"context"
	"fmt"

	"github.com/celerix-dev/celerix-passport/internal/config"
)

// OpenBackend builds the backend selected by cfg.
func OpenBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	enc, err := ParseEncoding(cfg.FieldEncoding)
	if err != nil {
		return nil, err
	}
	codec := Codec{Encoding: enc}

	switch cfg.Backend {
	case config.BackendFile, "":
		return NewPersistence(cfg.DataDir, codec)
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLiteFile(), codec)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL, codec)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Options translates cfg into engine options.
func Options(cfg config.Config) []Option {
	var opts []Option
	if cfg.TrackAssets {
		opts = append(opts, WithAssetTracking())
	}
	return opts
}
