// Package engine hosts passport records: it owns the record table, delivers
// calls to one record at a time and persists every mutation through a Backend.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

var (
	// ErrRecordNotFound is returned when no record exists under the given ID.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidRecordID is returned by backends for IDs they cannot store.
	ErrInvalidRecordID = errors.New("invalid record id")
	// ErrZeroOwner is returned when the zero account tries to deploy a record.
	ErrZeroOwner = fmt.Errorf("zero account: %w", passport.ErrInvalidAccountID)
	// ErrNotText is returned by the text codec for fields that are not valid UTF-8.
	ErrNotText = errors.New("field is not valid utf-8 text")
)

// Backend persists record snapshots between calls.
type Backend interface {
	// Save stores the snapshot under id, replacing any previous version.
	Save(ctx context.Context, id string, snap passport.Snapshot) error
	// LoadAll returns every stored snapshot keyed by record ID.
	LoadAll(ctx context.Context) (map[string]passport.Snapshot, error)
	// Close releases the backend's resources.
	Close() error
}

// loggerSetter is implemented by backends that log skipped documents; the
// engine hands them its own logger.
type loggerSetter interface {
	setLogger(*slog.Logger)
}

// backendLog is embedded by the backends.
type backendLog struct {
	log *slog.Logger
}

func (b *backendLog) setLogger(l *slog.Logger) { b.log = l }

func (b *backendLog) logger() *slog.Logger {
	if b.log == nil {
		return slog.Default()
	}
	return b.log
}
