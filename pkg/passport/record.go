// Package passport implements the access-controlled identity record.
//
// A Record holds a person's name, birthday, a private metadata blob and an
// activation flag. Every privileged operation compares the caller against the
// owner recorded at construction; callers that are not the owner get the
// restricted view or ErrCallerIsNotOwner.
//
// A Record is not safe for concurrent use. The host that owns it must deliver
// calls one at a time.
package passport

import "errors"

// ErrCallerIsNotOwner is returned when a privileged operation is invoked by a
// caller other than the record owner. State is never modified when it is returned.
var ErrCallerIsNotOwner = errors.New("caller is not owner")

// ErrorCode is the stable wire name of ErrCallerIsNotOwner.
const ErrorCode = "CallerIsNotOwner"

// Args are the construction parameters of a record.
type Args struct {
	Surname   string
	GivenName string
	// Birthday is a unix timestamp.
	Birthday uint64
	// Metadata is opaque to the record. Callers encrypt it themselves if needed.
	Metadata []byte
}

// Record is a single passport.
type Record struct {
	surname   string
	givenName string
	birthday  uint64
	metadata  []byte
	active    bool
	owner     AccountID
	assets    map[AccountID]uint32
}

// Option configures a record at construction.
type Option func(*Record)

// WithAssetTracking enables the per-account asset counter and credits the
// creator with one asset.
func WithAssetTracking() Option {
	return func(r *Record) {
		r.assets = make(map[AccountID]uint32)
	}
}

// New constructs an active record owned by caller. It cannot fail.
func New(caller AccountID, args Args, opts ...Option) *Record {
	r := &Record{
		surname:   args.Surname,
		givenName: args.GivenName,
		birthday:  args.Birthday,
		metadata:  cloneBytes(args.Metadata),
		active:    true,
		owner:     caller,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.assets != nil {
		r.assets[caller] = 1
	}
	return r
}

// IsOwner is the access gate. It is evaluated on every privileged call.
func (r *Record) IsOwner(caller AccountID) bool {
	return caller == r.owner
}

// DisplayName returns "surname given_name" to the owner and the surname alone
// to everyone else.
func (r *Record) DisplayName(caller AccountID) string {
	if r.IsOwner(caller) {
		return r.surname + " " + r.givenName
	}
	return r.surname
}

// IsActive is world-readable.
func (r *Record) IsActive() bool {
	return r.active
}

// Deactivate clears the active flag. Only the owner may call it; repeating the
// call after deactivation succeeds and changes nothing.
func (r *Record) Deactivate(caller AccountID) error {
	if !r.IsOwner(caller) {
		return ErrCallerIsNotOwner
	}
	r.active = false
	return nil
}

// Metadata returns a copy of the stored metadata to the owner.
func (r *Record) Metadata(caller AccountID) ([]byte, error) {
	if !r.IsOwner(caller) {
		return nil, ErrCallerIsNotOwner
	}
	return cloneBytes(r.metadata), nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
