package sdk

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/celerix-dev/celerix-passport/internal/vault"
	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

// Handle is a scoped view that "remembers" its record and caller.
type Handle struct {
	store  PassportStore
	id     string
	caller passport.AccountID
}

// Bind scopes store to one record and caller.
func Bind(store PassportStore, id string, caller passport.AccountID) *Handle {
	return &Handle{store: store, id: id, caller: caller}
}

// ID returns the bound record ID.
func (h *Handle) ID() string { return h.id }

func (h *Handle) DisplayName(ctx context.Context) (string, error) {
	return h.store.DisplayName(ctx, h.id, h.caller)
}

func (h *Handle) IsActive(ctx context.Context) (bool, error) {
	return h.store.IsActive(ctx, h.id)
}

func (h *Handle) Deactivate(ctx context.Context) error {
	return h.store.Deactivate(ctx, h.id, h.caller)
}

func (h *Handle) Metadata(ctx context.Context) ([]byte, error) {
	return h.store.Metadata(ctx, h.id, h.caller)
}

// Vault returns a view that decrypts metadata sealed with key.
func (h *Handle) Vault(key []byte) *Vault {
	return &Vault{handle: h, key: key}
}

// Vault provides client-side encryption for passport metadata. The host only
// ever sees base64 ciphertext, which stays valid under the text encoding.
type Vault struct {
	handle *Handle
	key    []byte
}

// Metadata fetches and decrypts the record's metadata.
func (v *Vault) Metadata(ctx context.Context) ([]byte, error) {
	sealed, err := v.handle.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	return Open(sealed, v.key)
}

// Seal encrypts plaintext metadata and encodes it for storage.
func Seal(plaintext, key []byte) ([]byte, error) {
	ciphertext, err := vault.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(ciphertext)))
	base64.StdEncoding.Encode(out, ciphertext)
	return out, nil
}

// Open reverses Seal.
func Open(sealed, key []byte) ([]byte, error) {
	ciphertext := make([]byte, base64.StdEncoding.DecodedLen(len(sealed)))
	n, err := base64.StdEncoding.Decode(ciphertext, sealed)
	if err != nil {
		return nil, fmt.Errorf("vault data is not sealed: %w", err)
	}
	return vault.Decrypt(ciphertext[:n], key)
}

// DeploySealed deploys a record whose metadata is encrypted with key and
// returns a handle bound to the new record and caller.
func DeploySealed(ctx context.Context, store PassportStore, caller passport.AccountID, args passport.Args, key []byte) (*Handle, error) {
	if args.Metadata != nil {
		sealed, err := Seal(args.Metadata, key)
		if err != nil {
			return nil, err
		}
		args.Metadata = sealed
	}
	id, err := store.Deploy(ctx, caller, args)
	if err != nil {
		return nil, err
	}
	return Bind(store, id, caller), nil
}
