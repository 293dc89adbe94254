package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// StaticKeyProvider is a KeyProvider backed by an in-memory key.
// It is safe for concurrent use; the key is never modified after construction.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a KeyProvider for the given key.
// The key must be 16, 24 or 32 bytes. Key bytes are copied internally;
// the caller may safely zero the original after construction.
func NewStaticKeyProvider(key []byte) (*StaticKeyProvider, error) {
	if err := validateKeySize(key); err != nil {
		return nil, err
	}
	b := make([]byte, len(key))
	copy(b, key)
	return &StaticKeyProvider{key: b}, nil
}

// NewStaticKeyProviderFromBase64 decodes a standard base64 key and creates a
// StaticKeyProvider for it.
func NewStaticKeyProviderFromBase64(encoded string) (*StaticKeyProvider, error) {
	key, err := decodeKey(encoded)
	if err != nil {
		return nil, err
	}
	defer clear(key)
	return NewStaticKeyProvider(key)
}

// Key returns a copy of the key.
func (p *StaticKeyProvider) Key(context.Context) ([]byte, error) {
	b := make([]byte, len(p.key))
	copy(b, p.key)
	return b, nil
}

// decodeKey decodes a base64 key value. The error never includes the value.
func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		// base64 errors only report the offending offset.
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	return key, nil
}

// Compile-time interface check.
var _ KeyProvider = (*StaticKeyProvider)(nil)
