package crypto

// Metadata keys.
const (
	// MetadataEncoding names the format or transform applied to Payload.Data.
	MetadataEncoding = "encoding"

	// MetadataFormat carries the envelope version of a versioned encrypted payload.
	MetadataFormat = "encryption-format"

	// MetadataOriginalEncoding carries the plain encoding inside a versioned envelope.
	MetadataOriginalEncoding = "encoding-original"
)

// Encodings.
const (
	EncodingEncrypted = "encrypted/aesgcm"
	EncodingJSON      = "json/plain"
	EncodingBinary    = "binary/plain"
	EncodingNull      = "binary/null"
	EncodingMsgPack   = "binary/msgpack"
)

// Payload is serialized data plus descriptive metadata.
// Codecs and converters never modify a Payload they receive; they return new ones.
type Payload struct {
	Metadata map[string][]byte `json:"metadata,omitempty"`
	Data     []byte            `json:"data,omitempty"`
}

// NewPayload returns a payload tagged with the given encoding.
func NewPayload(encoding string, data []byte) *Payload {
	return &Payload{
		Metadata: map[string][]byte{MetadataEncoding: []byte(encoding)},
		Data:     data,
	}
}

// Encoding returns the encoding metadata entry, or "" if absent.
func (p *Payload) Encoding() string {
	if p == nil {
		return ""
	}
	return string(p.Metadata[MetadataEncoding])
}

// Clone returns a deep copy of p.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	c := &Payload{}
	if p.Metadata != nil {
		c.Metadata = make(map[string][]byte, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = append([]byte(nil), v...)
		}
	}
	if p.Data != nil {
		c.Data = append([]byte(nil), p.Data...)
	}
	return c
}
