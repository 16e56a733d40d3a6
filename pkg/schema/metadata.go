// Package schema defines data structures shared by passport clients.
package schema

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedMetadata is returned when a metadata blob does not decode.
var ErrMalformedMetadata = errors.New("malformed user metadata")

// UserMetadata is the private payload clients usually store in a passport.
// The record never interprets it; the layout is a convention between clients.
type UserMetadata struct {
	// INN is the taxpayer identification number.
	INN uint64 `json:"inn"`
}

// userMetadataSize is the borsh layout size: a single little-endian u64.
const userMetadataSize = 8

// MarshalBinary encodes the metadata in borsh layout.
func (m UserMetadata) MarshalBinary() ([]byte, error) {
	out := make([]byte, userMetadataSize)
	binary.LittleEndian.PutUint64(out, m.INN)
	return out, nil
}

// UnmarshalBinary decodes the borsh layout produced by MarshalBinary.
func (m *UserMetadata) UnmarshalBinary(data []byte) error {
	if len(data) != userMetadataSize {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrMalformedMetadata, userMetadataSize, len(data))
	}
	m.INN = binary.LittleEndian.Uint64(data)
	return nil
}

// Encode returns the base64-wrapped binary form, ready to be stored as
// passport metadata.
func (m UserMetadata) Encode() []byte {
	raw, _ := m.MarshalBinary()
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}

// DecodeUserMetadata reverses Encode.
func DecodeUserMetadata(data []byte) (UserMetadata, error) {
	var m UserMetadata
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(raw, data)
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if err := m.UnmarshalBinary(raw[:n]); err != nil {
		return m, err
	}
	return m, nil
}
