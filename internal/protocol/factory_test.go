package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensaur-hub/internal/model"
)

func TestCreateConnection(t *testing.T) {
	logger := zap.NewNop()

	t.Run("serial defaults", func(t *testing.T) {
		conn, err := CreateConnection(ConnectionConfig{Type: model.ConnectionTypeSerial, Port: "/dev/ttyUSB0"}, logger)
		require.NoError(t, err)
		sc, ok := conn.(*SerialConnection)
		require.True(t, ok)
		assert.Equal(t, 9600, sc.config.BaudRate)
		assert.Equal(t, "/dev/ttyUSB0", sc.Name())
		assert.False(t, sc.IsOpen())
	})

	t.Run("tcp", func(t *testing.T) {
		conn, err := CreateConnection(ConnectionConfig{Name: "bridge", Type: model.ConnectionTypeTCP, Host: "10.0.0.5", TCPPort: 4000}, logger)
		require.NoError(t, err)
		assert.Equal(t, model.ConnectionTypeTCP, conn.Type())
		assert.Equal(t, "bridge", conn.Name())
	})

	t.Run("simulated", func(t *testing.T) {
		_, err := CreateConnection(ConnectionConfig{Type: model.ConnectionTypeSimulated}, logger)
		assert.ErrorIs(t, err, ErrSimulated)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ConnectionConfig
		wantErr bool
	}{
		{name: "serial ok", config: ConnectionConfig{Type: model.ConnectionTypeSerial, Port: "COM3", BaudRate: 115200}},
		{name: "serial without port", config: ConnectionConfig{Type: model.ConnectionTypeSerial}, wantErr: true},
		{name: "serial bad baud", config: ConnectionConfig{Type: model.ConnectionTypeSerial, Port: "COM3", BaudRate: 1234}, wantErr: true},
		{name: "tcp without host", config: ConnectionConfig{Type: model.ConnectionTypeTCP, TCPPort: 80}, wantErr: true},
		{name: "tcp bad port", config: ConnectionConfig{Type: model.ConnectionTypeTCP, Host: "h", TCPPort: 70000}, wantErr: true},
		{name: "unknown", config: ConnectionConfig{Type: "USB"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
