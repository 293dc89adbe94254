package crypto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// upperCodec is a codec.Codec storing strings upper-cased.
type upperCodec struct{}

func (upperCodec) Name() string { return "upper" }

func (upperCodec) Encode(_ context.Context, v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errors.New("upper: not a string")
	}
	return bytes.ToUpper([]byte(s)), nil
}

func (upperCodec) Decode(_ context.Context, data []byte, v any) error {
	p, ok := v.(*string)
	if !ok {
		return errors.New("upper: target must be *string")
	}
	*p = string(data)
	return nil
}

func TestNewCodecConverter(t *testing.T) {
	c, err := NewCodecConverter(upperCodec{})
	if err != nil {
		t.Fatalf("NewCodecConverter: %v", err)
	}
	if c.Encoding() != "upper/plain" {
		t.Errorf("Encoding(): got %q, want %q", c.Encoding(), "upper/plain")
	}

	p, err := c.ToPayload("abc")
	if err != nil {
		t.Fatalf("ToPayload: %v", err)
	}
	if p.Encoding() != "upper/plain" || string(p.Data) != "ABC" {
		t.Errorf("ToPayload: got %q %q", p.Encoding(), p.Data)
	}

	var got string
	if err := c.FromPayload(p, &got); err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	if got != "ABC" {
		t.Errorf("FromPayload: got %q", got)
	}
}

func TestNewCodecConverterNil(t *testing.T) {
	if _, err := NewCodecConverter(nil); err == nil {
		t.Error("expected error for nil codec")
	}
}

func TestCodecConverterWrongEncoding(t *testing.T) {
	var got string
	err := NewJSONConverter().FromPayload(NewPayload(EncodingBinary, []byte("x")), &got)
	if !IsUnknownEncoding(err) {
		t.Errorf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestJSONConverter(t *testing.T) {
	c := NewJSONConverter()

	p, err := c.ToPayload(map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("ToPayload: %v", err)
	}
	if p.Encoding() != EncodingJSON {
		t.Errorf("encoding: got %q", p.Encoding())
	}
	var check map[string]int
	if err := json.Unmarshal(p.Data, &check); err != nil || check["n"] != 1 {
		t.Errorf("data is not the expected JSON: %q (%v)", p.Data, err)
	}
}

func TestNullConverter(t *testing.T) {
	var c NullConverter

	var nilMap map[string]string
	for _, v := range []any{nil, nilMap, (*int)(nil)} {
		p, err := c.ToPayload(v)
		if err != nil {
			t.Fatalf("ToPayload(%#v): %v", v, err)
		}
		if p.Encoding() != EncodingNull || len(p.Data) != 0 {
			t.Errorf("ToPayload(%#v): got %q %q", v, p.Encoding(), p.Data)
		}
	}

	if _, err := c.ToPayload(0); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("ToPayload(0): expected ErrUnsupportedValue, got %v", err)
	}

	n := 42
	if err := c.FromPayload(NewPayload(EncodingNull, nil), &n); err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	if n != 0 {
		t.Errorf("FromPayload: got %d, want 0", n)
	}
	if err := c.FromPayload(NewPayload(EncodingNull, nil), n); err == nil {
		t.Error("FromPayload into non-pointer: expected error")
	}
}

func TestBinaryConverter(t *testing.T) {
	var c BinaryConverter

	in := []byte("raw")
	p, err := c.ToPayload(in)
	if err != nil {
		t.Fatalf("ToPayload: %v", err)
	}
	in[0] = 'X'
	if string(p.Data) != "raw" {
		t.Error("ToPayload did not copy the input")
	}

	if _, err := c.ToPayload("raw"); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("ToPayload(string): expected ErrUnsupportedValue, got %v", err)
	}

	var b []byte
	if err := c.FromPayload(p, &b); err != nil || string(b) != "raw" {
		t.Errorf("FromPayload(*[]byte): got %q, %v", b, err)
	}
	var a any
	if err := c.FromPayload(p, &a); err != nil {
		t.Fatalf("FromPayload(*any): %v", err)
	}
	if got, ok := a.([]byte); !ok || string(got) != "raw" {
		t.Errorf("FromPayload(*any): got %#v", a)
	}
	var s string
	if err := c.FromPayload(p, &s); err == nil {
		t.Error("FromPayload(*string): expected error")
	}
}

func TestMsgPackConverter(t *testing.T) {
	type point struct {
		X, Y int
	}
	var c MsgPackConverter

	p, err := c.ToPayload(point{X: 3, Y: 4})
	if err != nil {
		t.Fatalf("ToPayload: %v", err)
	}
	if p.Encoding() != EncodingMsgPack {
		t.Errorf("encoding: got %q", p.Encoding())
	}

	var got point
	if err := c.FromPayload(p, &got); err != nil {
		t.Fatalf("FromPayload: %v", err)
	}
	if got != (point{X: 3, Y: 4}) {
		t.Errorf("got %+v", got)
	}
}

func TestCompositeConverterOrder(t *testing.T) {
	c := DefaultConverter()

	tests := []struct {
		value any
		want  string
	}{
		{nil, EncodingNull},
		{[]byte("b"), EncodingBinary},
		{"s", EncodingJSON},
		{42, EncodingJSON},
	}
	for _, tt := range tests {
		p, err := c.ToPayload(tt.value)
		if err != nil {
			t.Fatalf("ToPayload(%#v): %v", tt.value, err)
		}
		if p.Encoding() != tt.want {
			t.Errorf("ToPayload(%#v): encoding %q, want %q", tt.value, p.Encoding(), tt.want)
		}
	}
}

func TestCompositeConverterUnknownEncoding(t *testing.T) {
	var got string
	err := DefaultConverter().FromPayload(NewPayload("proto/binary", []byte("x")), &got)
	if !IsUnknownEncoding(err) {
		t.Errorf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestCompositeConverterNoMatch(t *testing.T) {
	c := NewCompositeConverter(NullConverter{}, BinaryConverter{})
	if _, err := c.ToPayload("text"); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestCompositeConverterWithMsgPack(t *testing.T) {
	c := NewCompositeConverter(NullConverter{}, MsgPackConverter{}, NewJSONConverter())

	p, err := c.ToPayload([]int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if p.Encoding() != EncodingMsgPack {
		t.Errorf("encoding: got %q", p.Encoding())
	}

	// JSON payloads still decode through the composite.
	var s string
	if err := c.FromPayload(NewPayload(EncodingJSON, []byte(`"j"`)), &s); err != nil || s != "j" {
		t.Errorf("json decode: got %q, %v", s, err)
	}
}
