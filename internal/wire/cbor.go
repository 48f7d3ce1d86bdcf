// internal/wire/cbor.go
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// CBORCodec writes canonical CBOR. Struct fields use their json tag names.
type CBORCodec struct{}

func (CBORCodec) Encode(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cbor: %w", err)
	}
	return data, nil
}

func (CBORCodec) Decode(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode cbor: %w", err)
	}
	return nil
}

func (CBORCodec) ContentType() string { return "application/cbor" }

func (CBORCodec) Name() string { return FormatCBOR }

type cborEnvelope struct {
	Topic   string          `cbor:"topic"`
	Payload cbor.RawMessage `cbor:"payload"`
}

func (c CBORCodec) Envelope(topic string, payload []byte) ([]byte, error) {
	return c.Encode(cborEnvelope{Topic: topic, Payload: payload})
}

func (CBORCodec) Binary() bool { return true }
