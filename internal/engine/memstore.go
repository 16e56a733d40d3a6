package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-passport/internal/metrics"
	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

// Operation names used in logs and metrics.
const (
	OpDeploy      = "deploy"
	OpDisplayName = "display_name"
	OpIsActive    = "is_active"
	OpDeactivate  = "deactivate"
	OpMetadata    = "metadata"
	OpList        = "list"
)

// Engine is the thread-safe record host. Calls against one record are
// serialised; calls against different records run in parallel.
type Engine struct {
	mu      sync.RWMutex
	records map[string]*slot
	backend Backend

	recordOpts []passport.Option
	log        *slog.Logger
}

type slot struct {
	mu     sync.Mutex
	record *passport.Record
}

// Option configures an Engine.
type Option func(*Engine)

// WithAssetTracking makes every deployed record track assets.
func WithAssetTracking() Option {
	return func(e *Engine) {
		e.recordOpts = append(e.recordOpts, passport.WithAssetTracking())
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New loads every record from backend and starts the engine.
// A nil backend keeps records in memory only.
func New(ctx context.Context, backend Backend, opts ...Option) (*Engine, error) {
	e := &Engine{
		records: make(map[string]*slot),
		backend: backend,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if backend != nil {
		if ls, ok := backend.(loggerSetter); ok {
			ls.setLogger(e.log)
		}
		snaps, err := backend.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load records: %w", err)
		}
		for id, snap := range snaps {
			e.records[id] = &slot{record: passport.Restore(snap)}
		}
	}
	return e, nil
}

// Len returns the number of hosted records.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Close closes the backend.
func (e *Engine) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// Deploy constructs a new record owned by caller and returns its ID.
// The record is persisted before it becomes visible. The zero account stands
// for an anonymous caller and cannot own a record.
func (e *Engine) Deploy(ctx context.Context, caller passport.AccountID, args passport.Args) (string, error) {
	if caller.IsZero() {
		metrics.ObserveCall(OpDeploy, metrics.OutcomeError)
		return "", ErrZeroOwner
	}
	id := uuid.NewString()
	record := passport.New(caller, args, e.recordOpts...)

	if err := e.persist(ctx, id, record); err != nil {
		metrics.ObserveCall(OpDeploy, metrics.OutcomeError)
		return "", err
	}

	e.mu.Lock()
	e.records[id] = &slot{record: record}
	e.mu.Unlock()

	metrics.ObserveCall(OpDeploy, metrics.OutcomeOK)
	metrics.IncrementRecordsDeployed()
	e.log.Info("passport deployed", "record", id)
	return id, nil
}

// DisplayName returns the full name to the owner and the surname to others.
func (e *Engine) DisplayName(ctx context.Context, id string, caller passport.AccountID) (string, error) {
	var name string
	err := e.with(id, OpDisplayName, func(r *passport.Record) error {
		name = r.DisplayName(caller)
		return nil
	})
	return name, err
}

// IsActive reports the record's activation flag.
func (e *Engine) IsActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := e.with(id, OpIsActive, func(r *passport.Record) error {
		active = r.IsActive()
		return nil
	})
	return active, err
}

// Deactivate clears the active flag on behalf of the owner. If the change
// cannot be persisted the record stays active and the error is returned.
func (e *Engine) Deactivate(ctx context.Context, id string, caller passport.AccountID) error {
	return e.with(id, OpDeactivate, func(r *passport.Record) error {
		before := r.Snapshot()
		if err := r.Deactivate(caller); err != nil {
			return err
		}
		if !before.Active {
			return nil
		}
		if err := e.persist(ctx, id, r); err != nil {
			*r = *passport.Restore(before)
			return err
		}
		return nil
	})
}

// Metadata returns the record's metadata to the owner.
func (e *Engine) Metadata(ctx context.Context, id string, caller passport.AccountID) ([]byte, error) {
	var out []byte
	err := e.with(id, OpMetadata, func(r *passport.Record) error {
		var err error
		out, err = r.Metadata(caller)
		return err
	})
	return out, err
}

// List returns all record IDs in lexical order.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	e.mu.RLock()
	ids := make([]string, 0, len(e.records))
	for id := range e.records {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	sort.Strings(ids)
	metrics.ObserveCall(OpList, metrics.OutcomeOK)
	return ids, nil
}

// with runs fn against one record while holding that record's lock.
func (e *Engine) with(id, op string, fn func(*passport.Record) error) error {
	e.mu.RLock()
	s, ok := e.records[id]
	e.mu.RUnlock()
	if !ok {
		metrics.ObserveCall(op, metrics.OutcomeError)
		return ErrRecordNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.record)
	switch {
	case err == nil:
		metrics.ObserveCall(op, metrics.OutcomeOK)
	case errors.Is(err, passport.ErrCallerIsNotOwner):
		metrics.ObserveCall(op, metrics.OutcomeDenied)
		e.log.Warn("privileged call denied", "record", id, "operation", op)
	default:
		metrics.ObserveCall(op, metrics.OutcomeError)
		e.log.Error("passport call failed", "record", id, "operation", op, "error", err)
	}
	return err
}

func (e *Engine) persist(ctx context.Context, id string, r *passport.Record) error {
	if e.backend == nil {
		return nil
	}
	if err := e.backend.Save(ctx, id, r.Snapshot()); err != nil {
		return fmt.Errorf("persist record %s: %w", id, err)
	}
	return nil
}
