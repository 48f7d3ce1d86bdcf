package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Dir   string `json:"dir"`
	Type  string `json:"type"`
	Model string `json:"model"`
	Units string `json:"units"`
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "", want: FormatJSON},
		{format: "json", want: FormatJSON},
		{format: "CBOR", want: FormatCBOR},
		{format: "msgpack", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			codec, err := ForFormat(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, codec.Name())
		})
	}
}

func TestJSONCodecKeepsFieldOrder(t *testing.T) {
	data, err := JSONCodec{}.Encode(sample{Dir: "i", Type: "CO2", Model: "K-30", Units: "PPM"})
	require.NoError(t, err)
	assert.Equal(t, `{"dir":"i","type":"CO2","model":"K-30","units":"PPM"}`, string(data))
	assert.Equal(t, "application/json", JSONCodec{}.ContentType())
}

func TestCBORCodecUsesJSONNames(t *testing.T) {
	in := sample{Dir: "o", Type: "relay", Model: "SRD", Units: "state"}
	data, err := CBORCodec{}.Encode(in)
	require.NoError(t, err)

	var generic map[string]string
	require.NoError(t, CBORCodec{}.Decode(data, &generic))
	assert.Equal(t, map[string]string{"dir": "o", "type": "relay", "model": "SRD", "units": "state"}, generic)
}

func TestCBORCodecDecodeError(t *testing.T) {
	var out sample
	err := CBORCodec{}.Decode([]byte{0xff, 0x00}, &out)
	assert.Error(t, err)
}

func TestJSONCodecDecodeError(t *testing.T) {
	var out sample
	assert.Error(t, JSONCodec{}.Decode([]byte("{"), &out))
}

func TestEnvelope(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		codec := JSONCodec{}
		payload, err := codec.Encode(map[string]string{"a-CO2": "12.50"})
		require.NoError(t, err)

		frame, err := codec.Envelope("owner/hub/h1/sensors", payload)
		require.NoError(t, err)
		assert.JSONEq(t, `{"topic":"owner/hub/h1/sensors","payload":{"a-CO2":"12.50"}}`, string(frame))
		assert.False(t, codec.Binary())
	})

	t.Run("cbor", func(t *testing.T) {
		codec := CBORCodec{}
		payload, err := codec.Encode(map[string]string{"a-CO2": "12.50"})
		require.NoError(t, err)

		frame, err := codec.Envelope("owner/hub/h1/sensors", payload)
		require.NoError(t, err)
		assert.True(t, codec.Binary())

		var env struct {
			Topic   string            `cbor:"topic"`
			Payload map[string]string `cbor:"payload"`
		}
		require.NoError(t, codec.Decode(frame, &env))
		assert.Equal(t, "owner/hub/h1/sensors", env.Topic)
		assert.Equal(t, "12.50", env.Payload["a-CO2"])
	})
}
