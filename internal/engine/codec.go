package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

// Encoding selects how the name and metadata fields are written.
type Encoding string

const (
	// EncodingText writes fields as JSON strings and rejects invalid UTF-8.
	EncodingText Encoding = "text"
	// EncodingBytes writes fields base64 encoded and accepts any bytes.
	EncodingBytes Encoding = "bytes"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingText, EncodingBytes:
		return Encoding(s), nil
	case "":
		return EncodingText, nil
	}
	return "", fmt.Errorf("unknown field encoding %q", s)
}

// Codec turns snapshots into the documents every backend stores.
// Documents record their encoding, so any codec decodes any document.
type Codec struct {
	Encoding Encoding
}

type document struct {
	Encoding  Encoding                      `json:"encoding"`
	Surname   json.RawMessage               `json:"surname"`
	GivenName json.RawMessage               `json:"given_name"`
	Birthday  uint64                        `json:"birthday"`
	Metadata  json.RawMessage               `json:"metadata"`
	Active    bool                          `json:"active"`
	Owner     passport.AccountID            `json:"owner"`
	Assets    map[passport.AccountID]uint32 `json:"assets,omitempty"`
}

// Encode serialises a snapshot.
func (c Codec) Encode(s passport.Snapshot) ([]byte, error) {
	enc := c.Encoding
	if enc == "" {
		enc = EncodingText
	}
	doc := document{
		Encoding: enc,
		Birthday: s.Birthday,
		Active:   s.Active,
		Owner:    s.Owner,
		Assets:   s.Assets,
	}
	var err error
	if doc.Surname, err = encodeField(enc, "surname", []byte(s.Surname)); err != nil {
		return nil, err
	}
	if doc.GivenName, err = encodeField(enc, "given_name", []byte(s.GivenName)); err != nil {
		return nil, err
	}
	if s.Metadata == nil {
		doc.Metadata = json.RawMessage("null")
	} else if doc.Metadata, err = encodeField(enc, "metadata", s.Metadata); err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a document produced by Encode with either encoding.
func (c Codec) Decode(data []byte) (passport.Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return passport.Snapshot{}, fmt.Errorf("decode passport document: %w", err)
	}
	enc, err := ParseEncoding(string(doc.Encoding))
	if err != nil {
		return passport.Snapshot{}, err
	}
	s := passport.Snapshot{
		Birthday: doc.Birthday,
		Active:   doc.Active,
		Owner:    doc.Owner,
		Assets:   doc.Assets,
	}
	surname, err := decodeField(enc, "surname", doc.Surname)
	if err != nil {
		return passport.Snapshot{}, err
	}
	givenName, err := decodeField(enc, "given_name", doc.GivenName)
	if err != nil {
		return passport.Snapshot{}, err
	}
	s.Surname, s.GivenName = string(surname), string(givenName)
	if s.Metadata, err = decodeField(enc, "metadata", doc.Metadata); err != nil {
		return passport.Snapshot{}, err
	}
	return s, nil
}

func encodeField(enc Encoding, name string, value []byte) (json.RawMessage, error) {
	if enc == EncodingBytes {
		return json.Marshal(value)
	}
	if !utf8.Valid(value) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotText)
	}
	return json.Marshal(string(value))
}

func decodeField(enc Encoding, name string, raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if enc == EncodingBytes {
		var b []byte
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return []byte(s), nil
}
