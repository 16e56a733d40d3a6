package passport

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AccountIDSize is the byte length of an account identity.
const AccountIDSize = 32

// ErrInvalidAccountID is returned when an account ID cannot be parsed.
var ErrInvalidAccountID = errors.New("invalid account id")

// AccountID is an opaque, fixed-size caller identity supplied by the host.
// Equality is the only operation the access gate relies on.
type AccountID [AccountIDSize]byte

// ParseAccountID decodes a 64 character hex string, with or without a 0x prefix.
func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != hex.EncodedLen(AccountIDSize) {
		return id, ErrInvalidAccountID
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, ErrInvalidAccountID
	}
	return id, nil
}

// MustParseAccountID is like ParseAccountID but panics on malformed input.
// Intended for fixtures and tests.
func MustParseAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether every byte of the ID is zero.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
