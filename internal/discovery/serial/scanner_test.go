package serial

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensaur-hub/internal/discovery"
	"sensaur-hub/internal/model"
)

func TestScannerScan(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), &Config{
		BaudRate:     115200,
		PortPatterns: []string{"/dev/ttyUSB*", "/dev/ttyACM*"},
		Exclude:      []string{"/dev/ttyUSB9"},
	})
	scanner.listPorts = func() ([]string, error) {
		return []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyACM1", "/dev/ttyUSB9"}, nil
	}

	ports, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, &discovery.DiscoveredPort{
		ConnectionType: model.ConnectionTypeSerial,
		Port:           "/dev/ttyUSB0",
		BaudRate:       115200,
	}, ports[0])
	assert.Equal(t, "/dev/ttyACM1", ports[1].Port)
}

func TestScannerDefaults(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), nil)
	assert.Equal(t, 9600, scanner.config.BaudRate)
	assert.Equal(t, DefaultPortPatterns(), scanner.config.PortPatterns)
	assert.Equal(t, "serial", scanner.GetScannerType())
	assert.True(t, scanner.IsAvailable())
}

func TestScannerListError(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), nil)
	scanner.listPorts = func() ([]string, error) {
		return nil, errors.New("permission denied")
	}

	_, err := scanner.Scan(context.Background())
	assert.Error(t, err)
}

func TestScannerManager(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), &Config{PortPatterns: []string{"COM*"}})
	scanner.listPorts = func() ([]string, error) { return []string{"COM3"}, nil }

	manager := discovery.NewScannerManager(zap.NewNop())
	manager.RegisterScanner(scanner)

	assert.Equal(t, []string{"serial"}, manager.GetAvailableScanners())

	ports, err := manager.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "COM3", ports[0].Port)

	_, err = manager.ScanByType(context.Background(), "usb")
	assert.Error(t, err)
}
