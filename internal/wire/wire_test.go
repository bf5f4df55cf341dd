package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestParseEnvelopeJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{"type":"Message","_id":"m1","channel":"c1","content":"hi"}`)
	env, err := ParseEnvelope(EncodingJSON, data)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Type != "Message" {
		t.Errorf("Type = %q, want %q", env.Type, "Message")
	}

	var frame struct {
		ID      string `json:"_id"`
		Content string `json:"content"`
	}
	if err := env.Decode(&frame); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.ID != "m1" || frame.Content != "hi" {
		t.Errorf("decoded frame = %+v", frame)
	}
}

func TestParseEnvelopeCBOR(t *testing.T) {
	t.Parallel()

	ping := NewPing(42)
	data, err := EncodingCBOR.Marshal(ping)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	env, err := ParseEnvelope(EncodingCBOR, data)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if env.Type != TagPing {
		t.Errorf("Type = %q, want %q", env.Type, TagPing)
	}

	var got Ping
	if err := env.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Data != 42 {
		t.Errorf("Data = %d, want 42", got.Data)
	}
}

// TestCodecTagParity checks that both codecs key frames off the same json
// struct tags, so a frame written by one side decodes with the same field
// names on the other.
func TestCodecTagParity(t *testing.T) {
	t.Parallel()

	auth := Authenticate{Type: TagAuthenticate, Token: "tok", SessionID: "sess", Seq: 7}

	for _, enc := range []Encoding{EncodingJSON, EncodingCBOR} {
		data, err := enc.Marshal(auth)
		if err != nil {
			t.Fatalf("%s Marshal: %v", enc, err)
		}

		var raw map[string]interface{}
		if enc == EncodingCBOR {
			err = cbor.Unmarshal(data, &raw)
		} else {
			err = EncodingJSON.Unmarshal(data, &raw)
		}
		if err != nil {
			t.Fatalf("%s Unmarshal to map: %v", enc, err)
		}
		for _, key := range []string{"type", "token", "session_id", "seq"} {
			if _, ok := raw[key]; !ok {
				t.Errorf("%s: missing key %q in %v", enc, key, raw)
			}
		}
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"missing tag", []byte(`{"data":1}`), ErrMissingTag},
		{"empty tag", []byte(`{"type":""}`), ErrMissingTag},
		{"oversized", append([]byte(`{"type":"Message","pad":"`), bytes.Repeat([]byte("x"), maxFrameSize)...), ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope(EncodingJSON, tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseEnvelope error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseEnvelope(EncodingJSON, []byte(`{"type":`)); err == nil {
		t.Error("truncated JSON frame accepted")
	}
	if _, err := ParseEnvelope(EncodingCBOR, []byte{0xff, 0x00}); err == nil {
		t.Error("garbage CBOR frame accepted")
	}
}

func TestEncodingBinary(t *testing.T) {
	t.Parallel()

	if EncodingJSON.Binary() {
		t.Error("JSON must travel as text frames")
	}
	if !EncodingCBOR.Binary() {
		t.Error("CBOR must travel as binary frames")
	}
}
