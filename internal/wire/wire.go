// Package wire implements the gateway frame encoding: a tagged union of
// event payloads, carried as JSON over text frames or CBOR over binary
// frames. The encoding is negotiated once per connection (format query
// parameter) and fixed for the connection's lifetime.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// maxFrameSize bounds inbound frames to prevent OOM on a hostile peer.
const maxFrameSize = 10 * 1024 * 1024

var (
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")
	ErrMissingTag    = errors.New("wire: frame has no type tag")
)

// Encoding selects the frame codec.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// Binary reports whether frames travel as binary websocket messages.
func (e Encoding) Binary() bool { return e == EncodingCBOR }

// Marshal encodes v with the negotiated codec. CBOR decoding falls back to
// the json struct tags, so one tag set drives both codecs.
func (e Encoding) Marshal(v interface{}) ([]byte, error) {
	if e == EncodingCBOR {
		return cbor.Marshal(v)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data with the negotiated codec.
func (e Encoding) Unmarshal(data []byte, v interface{}) error {
	if e == EncodingCBOR {
		return cbor.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// Envelope is one inbound frame: its type tag plus the raw bytes, decoded
// lazily into the payload type the tag selects.
type Envelope struct {
	Type string

	raw []byte
	enc Encoding
}

// ParseEnvelope validates the frame size and extracts the type tag. A frame
// that does not decode, or decodes without a tag, is a protocol violation.
func ParseEnvelope(enc Encoding, data []byte) (Envelope, error) {
	if len(data) > maxFrameSize {
		return Envelope{}, ErrFrameTooLarge
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := enc.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("wire: malformed frame: %w", err)
	}
	if head.Type == "" {
		return Envelope{}, ErrMissingTag
	}

	return Envelope{Type: head.Type, raw: data, enc: enc}, nil
}

// Decode unmarshals the full frame into v.
func (e Envelope) Decode(v interface{}) error {
	return e.enc.Unmarshal(e.raw, v)
}
