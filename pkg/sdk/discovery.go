package sdk

import (
	"context"
	"log/slog"

	"github.com/celerix-dev/celerix-passport/internal/config"
	"github.com/celerix-dev/celerix-passport/internal/engine"
)

// Store is a PassportStore that owns a connection or a backend.
type Store interface {
	PassportStore
	Close() error
}

// New initializes the store based on the environment.
// It returns the interface, so the app doesn't care if it's local or remote.
func New(ctx context.Context, dataDir string) (Store, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.StoreAddr != "" {
		client, err := Connect(cfg.StoreAddr, WithTLS(!cfg.DisableTLS))
		if err == nil {
			return client, nil
		}
		slog.Warn("passport sdk: remote store unreachable, using embedded mode", "addr", cfg.StoreAddr, "error", err)
	}

	// Embedded mode uses the same engine the daemon runs, inside the app process.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	backend, err := engine.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(ctx, backend, engine.Options(cfg)...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return e, nil
}
