package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"
)

func testAEAD(t testing.TB) cipher.AEAD {
	t.Helper()
	block, err := aes.NewCipher(makeKey(32))
	if err != nil {
		t.Fatal(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	return aead
}

func TestSealOpenLegacy(t *testing.T) {
	aead := testAEAD(t)

	p, err := seal(aead, FormatLegacy, []byte("plaintext"), EncodingJSON)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, ok := p.Metadata[MetadataFormat]; ok {
		t.Error("legacy payload carries a format tag")
	}
	if want := gcmNonceSize + len("plaintext") + gcmTagSize; len(p.Data) != want {
		t.Errorf("len(data): got %d, want %d", len(p.Data), want)
	}

	plaintext, encoding, err := open(aead, p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plaintext) != "plaintext" {
		t.Errorf("plaintext: got %q", plaintext)
	}
	if encoding != "" {
		t.Errorf("legacy encoding: got %q, want empty", encoding)
	}
}

func TestSealOpenV1(t *testing.T) {
	aead := testAEAD(t)

	p, err := seal(aead, FormatV1, []byte{1, 2, 3}, EncodingBinary)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if p.Data[0] != formatVersion1 {
		t.Errorf("version byte: got %#x", p.Data[0])
	}

	plaintext, encoding, err := open(aead, p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(plaintext, []byte{1, 2, 3}) {
		t.Errorf("plaintext: got %x", plaintext)
	}
	if encoding != EncodingBinary {
		t.Errorf("encoding: got %q, want %q", encoding, EncodingBinary)
	}
}

func TestSealEmptyPlaintext(t *testing.T) {
	aead := testAEAD(t)

	for _, f := range []Format{FormatLegacy, FormatV1} {
		p, err := seal(aead, f, nil, EncodingNull)
		if err != nil {
			t.Fatalf("%s: seal: %v", f, err)
		}
		plaintext, _, err := open(aead, p)
		if err != nil {
			t.Fatalf("%s: open: %v", f, err)
		}
		if len(plaintext) != 0 {
			t.Errorf("%s: got %d bytes, want 0", f, len(plaintext))
		}
	}
}

func TestSealUnknownFormat(t *testing.T) {
	if _, err := seal(testAEAD(t), Format(7), []byte("x"), EncodingJSON); !IsInvalidFormat(err) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestSealV1RequiresEncoding(t *testing.T) {
	if _, err := seal(testAEAD(t), FormatV1, []byte("x"), ""); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestOpenV1VersionByteMismatch(t *testing.T) {
	aead := testAEAD(t)

	p, err := seal(aead, FormatV1, []byte("x"), EncodingJSON)
	if err != nil {
		t.Fatal(err)
	}
	p.Data[0] = 0x02

	if _, _, err := open(aead, p); !IsDecryptionFailed(err) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestOpenV1MissingOriginalEncoding(t *testing.T) {
	aead := testAEAD(t)

	p, err := seal(aead, FormatV1, []byte("x"), EncodingJSON)
	if err != nil {
		t.Fatal(err)
	}
	delete(p.Metadata, MetadataOriginalEncoding)

	if _, _, err := open(aead, p); !IsInvalidFormat(err) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestOpenV1EmptyData(t *testing.T) {
	aead := testAEAD(t)

	p := NewPayload(EncodingEncrypted, nil)
	p.Metadata[MetadataFormat] = []byte(formatVersion1Tag)
	p.Metadata[MetadataOriginalEncoding] = []byte(EncodingJSON)

	if _, _, err := open(aead, p); !IsDecryptionFailed(err) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatLegacy},
		{"legacy", FormatLegacy},
		{"v1", FormatV1},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, in := range []string{"v2", "V1", "aes"} {
		if _, err := ParseFormat(in); !IsInvalidFormat(err) {
			t.Errorf("ParseFormat(%q): expected ErrInvalidFormat, got %v", in, err)
		}
	}
}

func TestFormatString(t *testing.T) {
	for _, f := range []Format{FormatLegacy, FormatV1} {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", f.String(), got, err, f)
		}
	}
	if s := Format(5).String(); s != "Format(5)" {
		t.Errorf("unknown format string: got %q", s)
	}
}
