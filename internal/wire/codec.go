// internal/wire/codec.go
package wire

import (
	"fmt"
	"strings"
)

// Format names accepted by ForFormat
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Codec encodes hub messages for publishing and decodes inbound ones
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	ContentType() string
	Name() string

	// Envelope wraps an encoded payload with the topic it was published on,
	// producing a single frame for stream subscribers.
	Envelope(topic string, payload []byte) ([]byte, error)
	// Binary reports whether frames must be sent as binary data.
	Binary() bool
}

// ForFormat returns the codec configured by hub.wire_format
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return JSONCodec{}, nil
	case FormatCBOR:
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported wire format: %s", format)
	}
}
