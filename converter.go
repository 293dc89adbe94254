package crypto

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rbaliyan/config/codec"
	jsoncodec "github.com/rbaliyan/config/codec/json"
	"github.com/vmihailenco/msgpack/v5"
)

// PayloadConverter serializes values to payloads and back.
// Implementations must be safe for concurrent use.
type PayloadConverter interface {
	// ToPayload serializes v. It returns ErrUnsupportedValue if the converter
	// cannot represent v.
	ToPayload(v any) (*Payload, error)

	// FromPayload deserializes p into v, which must be a non-nil pointer.
	FromPayload(p *Payload, v any) error
}

// EncodingConverter is a PayloadConverter that produces a single encoding.
type EncodingConverter interface {
	PayloadConverter

	// Encoding returns the encoding metadata value this converter writes.
	Encoding() string
}

// CodecConverter adapts a config codec to the "<name>/plain" encoding.
type CodecConverter struct {
	codec    codec.Codec
	encoding string
}

// NewCodecConverter wraps c. The encoding is c.Name() + "/plain".
func NewCodecConverter(c codec.Codec) (*CodecConverter, error) {
	if c == nil {
		return nil, fmt.Errorf("crypto: NewCodecConverter codec is nil")
	}
	return &CodecConverter{codec: c, encoding: c.Name() + "/plain"}, nil
}

// NewJSONConverter returns the json/plain converter.
func NewJSONConverter() *CodecConverter {
	return &CodecConverter{codec: jsoncodec.New(), encoding: EncodingJSON}
}

// Encoding returns the converter's encoding.
func (c *CodecConverter) Encoding() string { return c.encoding }

// ToPayload serializes v with the wrapped codec.
func (c *CodecConverter) ToPayload(v any) (*Payload, error) {
	data, err := c.codec.Encode(context.Background(), v)
	if err != nil {
		return nil, fmt.Errorf("crypto: %s encode failed: %w", c.encoding, err)
	}
	return NewPayload(c.encoding, data), nil
}

// FromPayload deserializes p with the wrapped codec.
func (c *CodecConverter) FromPayload(p *Payload, v any) error {
	if err := checkEncoding(p, c.encoding); err != nil {
		return err
	}
	if err := c.codec.Decode(context.Background(), p.Data, v); err != nil {
		return fmt.Errorf("crypto: %s decode failed: %w", c.encoding, err)
	}
	return nil
}

// NullConverter handles nil values as binary/null payloads with no data.
type NullConverter struct{}

// Encoding returns binary/null.
func (NullConverter) Encoding() string { return EncodingNull }

// ToPayload accepts only nil.
func (NullConverter) ToPayload(v any) (*Payload, error) {
	if !isNil(v) {
		return nil, ErrUnsupportedValue
	}
	return NewPayload(EncodingNull, nil), nil
}

// FromPayload sets the target to its zero value.
func (NullConverter) FromPayload(p *Payload, v any) error {
	if err := checkEncoding(p, EncodingNull); err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("crypto: %s target must be a non-nil pointer, got %T", EncodingNull, v)
	}
	rv.Elem().SetZero()
	return nil
}

// BinaryConverter passes []byte values through as binary/plain payloads.
type BinaryConverter struct{}

// Encoding returns binary/plain.
func (BinaryConverter) Encoding() string { return EncodingBinary }

// ToPayload accepts only []byte. The data is copied.
func (BinaryConverter) ToPayload(v any) (*Payload, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrUnsupportedValue
	}
	return NewPayload(EncodingBinary, append([]byte(nil), b...)), nil
}

// FromPayload copies the data into a *[]byte or *any target.
func (BinaryConverter) FromPayload(p *Payload, v any) error {
	if err := checkEncoding(p, EncodingBinary); err != nil {
		return err
	}
	data := append([]byte(nil), p.Data...)
	switch t := v.(type) {
	case *[]byte:
		*t = data
	case *any:
		*t = data
	default:
		return fmt.Errorf("crypto: %s target must be *[]byte, got %T", EncodingBinary, v)
	}
	return nil
}

// MsgPackConverter serializes values with MessagePack as binary/msgpack.
type MsgPackConverter struct{}

// Encoding returns binary/msgpack.
func (MsgPackConverter) Encoding() string { return EncodingMsgPack }

// ToPayload serializes v with MessagePack.
func (MsgPackConverter) ToPayload(v any) (*Payload, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("crypto: %s encode failed: %w", EncodingMsgPack, err)
	}
	return NewPayload(EncodingMsgPack, data), nil
}

// FromPayload deserializes MessagePack data into v.
func (MsgPackConverter) FromPayload(p *Payload, v any) error {
	if err := checkEncoding(p, EncodingMsgPack); err != nil {
		return err
	}
	if err := msgpack.Unmarshal(p.Data, v); err != nil {
		return fmt.Errorf("crypto: %s decode failed: %w", EncodingMsgPack, err)
	}
	return nil
}

// CompositeConverter tries a list of converters in order when serializing and
// dispatches on the payload encoding when deserializing.
type CompositeConverter struct {
	converters []EncodingConverter
	byEncoding map[string]EncodingConverter
}

// NewCompositeConverter creates a composite of the given converters.
// When two converters share an encoding the first one wins on decode.
func NewCompositeConverter(converters ...EncodingConverter) *CompositeConverter {
	c := &CompositeConverter{
		converters: converters,
		byEncoding: make(map[string]EncodingConverter, len(converters)),
	}
	for _, conv := range converters {
		if _, ok := c.byEncoding[conv.Encoding()]; !ok {
			c.byEncoding[conv.Encoding()] = conv
		}
	}
	return c
}

// DefaultConverter returns the composite of binary/null, binary/plain and json/plain.
func DefaultConverter() *CompositeConverter {
	return NewCompositeConverter(NullConverter{}, BinaryConverter{}, NewJSONConverter())
}

// ToPayload uses the first converter that accepts v.
func (c *CompositeConverter) ToPayload(v any) (*Payload, error) {
	for _, conv := range c.converters {
		p, err := conv.ToPayload(v)
		if errors.Is(err, ErrUnsupportedValue) {
			continue
		}
		return p, err
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// FromPayload deserializes p with the converter registered for its encoding.
func (c *CompositeConverter) FromPayload(p *Payload, v any) error {
	conv, ok := c.byEncoding[p.Encoding()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, p.Encoding())
	}
	return conv.FromPayload(p, v)
}

func checkEncoding(p *Payload, want string) error {
	if p == nil {
		return fmt.Errorf("crypto: payload is nil")
	}
	if got := p.Encoding(); got != want {
		return fmt.Errorf("%w: %q, want %q", ErrUnknownEncoding, got, want)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// Compile-time interface checks.
var (
	_ EncodingConverter = (*CodecConverter)(nil)
	_ EncodingConverter = NullConverter{}
	_ EncodingConverter = BinaryConverter{}
	_ EncodingConverter = MsgPackConverter{}
	_ PayloadConverter  = (*CompositeConverter)(nil)
)
