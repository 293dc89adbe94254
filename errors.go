package crypto

import "errors"

var (
	// ErrConfiguration is returned when a key provider is missing the endpoint
	// or secret name it needs to reach the secret store.
	ErrConfiguration = errors.New("crypto: missing key configuration")

	// ErrKeyAccess is returned when the secret store is unreachable or denies access.
	ErrKeyAccess = errors.New("crypto: key access failed")

	// ErrKeyDecode is returned when the stored key is not valid base64.
	ErrKeyDecode = errors.New("crypto: key decode failed")

	// ErrInvalidKeySize is returned when a key is not 16, 24 or 32 bytes.
	ErrInvalidKeySize = errors.New("crypto: invalid key size, must be 16, 24 or 32 bytes")

	// ErrDecryptionFailed is returned when decryption fails (wrong key, tampered data).
	ErrDecryptionFailed = errors.New("crypto: decryption failed")

	// ErrInvalidFormat is returned when an encrypted payload carries an unknown
	// or malformed envelope format.
	ErrInvalidFormat = errors.New("crypto: invalid encrypted payload format")

	// ErrUnknownEncoding is returned when no converter handles a payload encoding.
	ErrUnknownEncoding = errors.New("crypto: unknown payload encoding")

	// ErrUnsupportedValue is returned when a converter cannot serialize a value,
	// or when a payload's encoding cannot be recorded by the envelope format.
	ErrUnsupportedValue = errors.New("crypto: unsupported value")
)

// IsConfiguration returns true if the error is or wraps ErrConfiguration.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsKeyAccess returns true if the error is or wraps ErrKeyAccess.
func IsKeyAccess(err error) bool {
	return errors.Is(err, ErrKeyAccess)
}

// IsKeyDecode returns true if the error is or wraps ErrKeyDecode.
func IsKeyDecode(err error) bool {
	return errors.Is(err, ErrKeyDecode)
}

// IsInvalidKeySize returns true if the error is or wraps ErrInvalidKeySize.
func IsInvalidKeySize(err error) bool {
	return errors.Is(err, ErrInvalidKeySize)
}

// IsDecryptionFailed returns true if the error is or wraps ErrDecryptionFailed.
func IsDecryptionFailed(err error) bool {
	return errors.Is(err, ErrDecryptionFailed)
}

// IsInvalidFormat returns true if the error is or wraps ErrInvalidFormat.
func IsInvalidFormat(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}

// IsUnknownEncoding returns true if the error is or wraps ErrUnknownEncoding.
func IsUnknownEncoding(err error) bool {
	return errors.Is(err, ErrUnknownEncoding)
}
