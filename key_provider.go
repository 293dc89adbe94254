package crypto

import (
	"context"
	"fmt"
)

// KeyProvider abstracts retrieval of the symmetric payload key.
// Implementations must be safe for concurrent use and must return a copy
// of the key that the caller may wipe.
type KeyProvider interface {
	// Key returns the AES key (16, 24 or 32 bytes).
	Key(ctx context.Context) ([]byte, error)
}

// validateKeySize checks that key is a valid AES-128, AES-192 or AES-256 key.
func validateKeySize(key []byte) error {
	switch len(key) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
}
