package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Format selects the encrypted payload layout written by a Codec.
// Both layouts are always accepted on decode.
type Format int

const (
	// FormatLegacy writes nonce || ciphertext || tag with no associated data.
	// The plain encoding is not recorded; decode assumes the codec's legacy encoding.
	FormatLegacy Format = iota

	// FormatV1 writes version || nonce || ciphertext || tag and records the plain
	// encoding in metadata. The version byte and plain encoding are bound to the
	// ciphertext as associated data.
	FormatV1
)

// Binary format constants.
const (
	// formatVersion1 is the leading byte of a FormatV1 payload.
	formatVersion1 = 0x01

	// formatVersion1Tag is the MetadataFormat value of a FormatV1 payload.
	formatVersion1Tag = "1"

	// gcmNonceSize is the nonce size for AES-GCM (12 bytes).
	gcmNonceSize = 12

	// gcmTagSize is the authentication tag size for GCM (16 bytes).
	gcmTagSize = 16
)

// String returns the configuration name of the format.
func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatV1:
		return "v1"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses a configuration name produced by Format.String.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "legacy":
		return FormatLegacy, nil
	case "v1":
		return FormatV1, nil
	default:
		return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidFormat, s)
	}
}

// seal encrypts plaintext and returns the encrypted payload for the given format.
// A fresh random nonce is drawn for every call.
func seal(aead cipher.AEAD, format Format, plaintext []byte, encoding string) (*Payload, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	switch format {
	case FormatLegacy:
		out := make([]byte, 0, gcmNonceSize+len(plaintext)+gcmTagSize)
		out = append(out, nonce...)
		return NewPayload(EncodingEncrypted, aead.Seal(out, nonce, plaintext, nil)), nil

	case FormatV1:
		if encoding == "" {
			return nil, fmt.Errorf("%w: payload has no encoding", ErrUnsupportedValue)
		}
		out := make([]byte, 0, 1+gcmNonceSize+len(plaintext)+gcmTagSize)
		out = append(out, formatVersion1)
		out = append(out, nonce...)
		p := NewPayload(EncodingEncrypted, aead.Seal(out, nonce, plaintext, associatedData(formatVersion1, encoding)))
		p.Metadata[MetadataFormat] = []byte(formatVersion1Tag)
		p.Metadata[MetadataOriginalEncoding] = []byte(encoding)
		return p, nil

	default:
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidFormat, int(format))
	}
}

// open authenticates and decrypts an encrypted payload. It returns the
// plaintext and the plain encoding recorded in the envelope ("" for FormatLegacy).
// No plaintext is returned unless authentication succeeds.
func open(aead cipher.AEAD, p *Payload) ([]byte, string, error) {
	tag, versioned := p.Metadata[MetadataFormat]
	if !versioned {
		plaintext, err := openSealed(aead, p.Data, nil)
		return plaintext, "", err
	}

	if string(tag) != formatVersion1Tag {
		return nil, "", fmt.Errorf("%w: unsupported version %q", ErrInvalidFormat, tag)
	}
	encoding := string(p.Metadata[MetadataOriginalEncoding])
	if encoding == "" {
		return nil, "", fmt.Errorf("%w: missing %s", ErrInvalidFormat, MetadataOriginalEncoding)
	}
	if len(p.Data) == 0 || p.Data[0] != formatVersion1 {
		return nil, "", fmt.Errorf("%w: version byte mismatch", ErrDecryptionFailed)
	}

	plaintext, err := openSealed(aead, p.Data[1:], associatedData(formatVersion1, encoding))
	if err != nil {
		return nil, "", err
	}
	return plaintext, encoding, nil
}

// openSealed splits nonce || ciphertext || tag and opens it.
func openSealed(aead cipher.AEAD, data, ad []byte) ([]byte, error) {
	if len(data) < gcmNonceSize+gcmTagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, ciphertext := data[:gcmNonceSize], data[gcmNonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: message authentication failed", ErrDecryptionFailed)
	}
	return plaintext, nil
}

func associatedData(version byte, encoding string) []byte {
	ad := make([]byte, 0, 1+len(encoding))
	ad = append(ad, version)
	return append(ad, encoding...)
}
