// internal/wire/json.go
package wire

import (
	"encoding/json"
	"fmt"
)

// JSONCodec writes compact JSON. Object keys follow struct field order.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode json: %w", err)
	}
	return nil
}

func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Name() string { return FormatJSON }

type jsonEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func (c JSONCodec) Envelope(topic string, payload []byte) ([]byte, error) {
	return c.Encode(jsonEnvelope{Topic: topic, Payload: payload})
}

func (JSONCodec) Binary() bool { return false }
