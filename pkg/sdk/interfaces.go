package sdk

import (
	"context"
	"errors"
	"strings"

	"github.com/celerix-dev/celerix-passport/internal/engine"
	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

// Errors that survive the trip over the wire. The client maps server messages
// back to these values so errors.Is works the same embedded or remote.
var (
	ErrCallerIsNotOwner = passport.ErrCallerIsNotOwner
	ErrRecordNotFound   = engine.ErrRecordNotFound
	ErrInvalidAccountID = passport.ErrInvalidAccountID
	ErrZeroOwner        = engine.ErrZeroOwner
	ErrNotText          = engine.ErrNotText
)

var wireErrors = []error{
	ErrCallerIsNotOwner,
	ErrRecordNotFound,
	ErrInvalidAccountID,
	ErrZeroOwner,
	ErrNotText,
}

// errorFromWire turns a server error message back into a sentinel when it
// names one, keeping the full message otherwise.
func errorFromWire(msg string) error {
	for _, known := range wireErrors {
		if msg == known.Error() {
			return known
		}
	}
	for _, known := range wireErrors {
		if strings.HasSuffix(msg, ": "+known.Error()) {
			return &wireError{msg: msg, err: known}
		}
	}
	return errors.New(msg)
}

type wireError struct {
	msg string
	err error
}

func (e *wireError) Error() string { return e.msg }
func (e *wireError) Unwrap() error { return e.err }

// --- Functional Interfaces (Interface Segregation) ---

// RecordReader covers the read operations on one record.
type RecordReader interface {
	DisplayName(ctx context.Context, id string, caller passport.AccountID) (string, error)
	IsActive(ctx context.Context, id string) (bool, error)
	Metadata(ctx context.Context, id string, caller passport.AccountID) ([]byte, error)
}

// RecordWriter covers the operations that create or change records.
type RecordWriter interface {
	Deploy(ctx context.Context, caller passport.AccountID, args passport.Args) (string, error)
	Deactivate(ctx context.Context, id string, caller passport.AccountID) error
}

// RecordEnumeration allows discovering records.
type RecordEnumeration interface {
	List(ctx context.Context) ([]string, error)
}

// --- Composite Interfaces ---

// PassportStore is the primary interface for talking to a passport host.
// Both the embedded engine and the remote client implement it.
type PassportStore interface {
	RecordReader
	RecordWriter
	RecordEnumeration
}

var _ PassportStore = (*engine.Engine)(nil)
