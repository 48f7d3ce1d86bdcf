package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9000"
hub:
  id: "hub-42"
  owner_id: "acme"
  polling_interval: 2s
  wire_format: cbor
devices:
  - name: bench
    type: serial
    port: /dev/ttyUSB0
    baud_rate: 115200
  - type: tcp
    host: 10.0.0.9
    tcp_port: 4000
simulator:
  enabled: true
  fixture: ./devices.yaml
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddr())
	assert.Equal(t, "hub-42", cfg.Hub.ID)
	assert.Equal(t, "acme", cfg.Hub.OwnerID)
	assert.Equal(t, 2*time.Second, cfg.Hub.PollingInterval)
	assert.Equal(t, "cbor", cfg.Hub.WireFormat)
	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "bench", cfg.Devices[0].Name)
	assert.Equal(t, 115200, cfg.Devices[0].BaudRate)
	assert.Equal(t, 4000, cfg.Devices[1].TCPPort)
	assert.True(t, cfg.Simulator.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 720*time.Hour, cfg.Database.RetentionPeriod)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsDebugEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SENSAUR_HUB_HUB_OWNER_ID", "from-env")
	t.Setenv("SENSAUR_HUB_LOGGING_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Hub.OwnerID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad wire format", content: "hub:\n  wire_format: xml\n"},
		{name: "bad device type", content: "devices:\n  - type: usb\n"},
		{name: "bad level", content: "logging:\n  level: loud\n"},
		{name: "bad environment", content: "app:\n  environment: moon\n"},
		{name: "zero polling", content: "hub:\n  polling_interval: 0s\n"},
		{name: "negative polling", content: "hub:\n  polling_interval: -5s\n"},
		{name: "overflowing polling", content: "hub:\n  polling_interval: 9999999999h\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "readings", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=readings sslmode=disable", cfg.GetDatabaseDSN())
}
