package crypto

import (
	"encoding/json"
	"testing"
)

func TestPayloadClone(t *testing.T) {
	p := NewPayload(EncodingJSON, []byte(`"v"`))
	p.Metadata["extra"] = []byte("x")

	c := p.Clone()
	c.Data[0] = 'X'
	c.Metadata["extra"][0] = 'Y'
	c.Metadata["added"] = nil

	if string(p.Data) != `"v"` {
		t.Error("Clone shares Data")
	}
	if string(p.Metadata["extra"]) != "x" {
		t.Error("Clone shares metadata values")
	}
	if _, ok := p.Metadata["added"]; ok {
		t.Error("Clone shares the metadata map")
	}
}

func TestPayloadCloneNil(t *testing.T) {
	var p *Payload
	if p.Clone() != nil {
		t.Error("Clone of nil payload should be nil")
	}
	if p.Encoding() != "" {
		t.Error("Encoding of nil payload should be empty")
	}
}

func TestPayloadJSON(t *testing.T) {
	p := NewPayload(EncodingEncrypted, []byte{0x00, 0xFF})

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var got Payload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Encoding() != EncodingEncrypted || len(got.Data) != 2 || got.Data[1] != 0xFF {
		t.Errorf("got %+v from %s", got, data)
	}
}
