package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"go.opentelemetry.io/otel"
)

// Codec wraps a plain PayloadConverter with AES-GCM encryption.
// On Encode, the inner converter serializes the value, then the payload data is
// encrypted and tagged encrypted/aesgcm. On Decode, payloads tagged
// encrypted/aesgcm are authenticated and decrypted before the inner converter
// deserializes them; any other payload goes to the inner converter unchanged,
// so data written before encryption was enabled stays readable.
//
// The key is obtained once, at construction. Codec is safe for concurrent use
// if the inner converter is.
type Codec struct {
	inner          PayloadConverter
	aead           cipher.AEAD
	format         Format
	legacyEncoding string
	metrics        *codecMetrics
}

// NewCodec creates an encrypting codec that wraps the given inner converter.
// The key is fetched from provider immediately and must be 16, 24 or 32 bytes,
// so a misconfigured key fails here rather than on first use.
func NewCodec(ctx context.Context, inner PayloadConverter, provider KeyProvider, opts ...Option) (*Codec, error) {
	if inner == nil {
		return nil, fmt.Errorf("crypto: NewCodec inner converter is nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("crypto: NewCodec provider is nil")
	}

	o := codecOptions{format: FormatLegacy}
	for _, opt := range opts {
		opt(&o)
	}
	if o.format != FormatLegacy && o.format != FormatV1 {
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidFormat, int(o.format))
	}
	if o.legacyEncoding == "" {
		o.legacyEncoding = EncodingJSON
		if ec, ok := inner.(EncodingConverter); ok {
			o.legacyEncoding = ec.Encoding()
		}
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	key, err := provider.Key(ctx)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	if err := validateKeySize(key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	m, err := newCodecMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create metrics: %w", err)
	}

	return &Codec{
		inner:          inner,
		aead:           aead,
		format:         o.format,
		legacyEncoding: o.legacyEncoding,
		metrics:        m,
	}, nil
}

// Encode serializes the value using the inner converter, then encrypts the result.
func (c *Codec) Encode(v any) (*Payload, error) {
	p, err := c.inner.ToPayload(v)
	if err != nil {
		c.metrics.recordEncode(resultError)
		return nil, fmt.Errorf("crypto: inner encode failed: %w", err)
	}
	return c.EncodePayload(p)
}

// EncodePayload encrypts an already serialized payload. p is not modified.
// With FormatLegacy, p must carry the codec's legacy encoding.
func (c *Codec) EncodePayload(p *Payload) (*Payload, error) {
	if p == nil {
		c.metrics.recordEncode(resultError)
		return nil, fmt.Errorf("crypto: payload is nil")
	}
	// Legacy envelopes do not record the plain encoding, so only the
	// configured legacy encoding can be read back.
	if c.format == FormatLegacy && p.Encoding() != c.legacyEncoding {
		c.metrics.recordEncode(resultError)
		return nil, fmt.Errorf("%w: legacy format cannot record encoding %q, want %q",
			ErrUnsupportedValue, p.Encoding(), c.legacyEncoding)
	}
	out, err := seal(c.aead, c.format, p.Data, p.Encoding())
	if err != nil {
		c.metrics.recordEncode(resultError)
		return nil, err
	}
	c.metrics.recordEncode(resultEncrypted)
	return out, nil
}

// Decode decrypts the payload if it is encrypted, then deserializes it into v
// using the inner converter.
func (c *Codec) Decode(p *Payload, v any) error {
	plain, err := c.DecodePayload(p)
	if err != nil {
		return err
	}
	if err := c.inner.FromPayload(plain, v); err != nil {
		return fmt.Errorf("crypto: inner decode failed: %w", err)
	}
	return nil
}

// DecodePayload returns the plain payload for p. Encrypted payloads are
// authenticated and decrypted; any other payload is returned as an unmodified
// copy. On authentication failure no plaintext is returned.
func (c *Codec) DecodePayload(p *Payload) (*Payload, error) {
	if p == nil {
		return nil, fmt.Errorf("crypto: payload is nil")
	}
	if p.Encoding() != EncodingEncrypted {
		c.metrics.recordDecode(resultPassthrough)
		return p.Clone(), nil
	}

	plaintext, encoding, err := open(c.aead, p)
	if err != nil {
		c.metrics.recordDecode(resultError)
		return nil, err
	}
	if encoding == "" {
		encoding = c.legacyEncoding
	}
	c.metrics.recordDecode(resultDecrypted)
	return NewPayload(encoding, plaintext), nil
}

// EncodeAll encodes each value in order, stopping at the first failure.
func (c *Codec) EncodeAll(values []any) ([]*Payload, error) {
	out := make([]*Payload, len(values))
	for i, v := range values {
		p, err := c.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("crypto: value %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// DecodeAll decodes payloads[i] into targets[i] in order, stopping at the
// first failure. Both slices must have the same length.
func (c *Codec) DecodeAll(payloads []*Payload, targets []any) error {
	if len(payloads) != len(targets) {
		return fmt.Errorf("crypto: DecodeAll got %d payloads and %d targets", len(payloads), len(targets))
	}
	for i, p := range payloads {
		if err := c.Decode(p, targets[i]); err != nil {
			return fmt.Errorf("crypto: payload %d: %w", i, err)
		}
	}
	return nil
}

// EncodePayloads encrypts each payload in order, stopping at the first failure.
func (c *Codec) EncodePayloads(payloads []*Payload) ([]*Payload, error) {
	out := make([]*Payload, len(payloads))
	for i, p := range payloads {
		enc, err := c.EncodePayload(p)
		if err != nil {
			return nil, fmt.Errorf("crypto: payload %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

// DecodePayloads decrypts each payload in order, stopping at the first failure.
func (c *Codec) DecodePayloads(payloads []*Payload) ([]*Payload, error) {
	out := make([]*Payload, len(payloads))
	for i, p := range payloads {
		dec, err := c.DecodePayload(p)
		if err != nil {
			return nil, fmt.Errorf("crypto: payload %d: %w", i, err)
		}
		out[i] = dec
	}
	return out, nil
}
