// internal/protocol/factory.go
package protocol

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sensaur-hub/internal/model"
)

// ErrSimulated is returned by CreateConnection for simulated devices, which
// are built by the simulator package instead.
var ErrSimulated = errors.New("simulated connections are created by the simulator")

// ConnectionConfig is the transport independent description of one device link
type ConnectionConfig struct {
	Name         string
	Type         model.ConnectionType
	Port         string // serial device path
	BaudRate     int
	DataBits     int
	StopBits     int
	Parity       string
	Host         string
	TCPPort      int
	KeepAlive    bool
	Timeout      time.Duration
	WriteTimeout time.Duration
}

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// CreateConnection creates a line connection based on its type
func CreateConnection(config ConnectionConfig, logger *zap.Logger) (LineConnection, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	switch config.Type {
	case model.ConnectionTypeSerial:
		return createSerialConnection(config, logger), nil
	case model.ConnectionTypeTCP:
		return createTCPConnection(config, logger), nil
	case model.ConnectionTypeSimulated:
		return nil, ErrSimulated
	default:
		return nil, fmt.Errorf("unsupported connection type: %s", config.Type)
	}
}

// createSerialConnection fills serial defaults
func createSerialConnection(config ConnectionConfig, logger *zap.Logger) LineConnection {
	serialConfig := &SerialConfig{
		Name:     config.Name,
		Port:     config.Port,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	}
	if config.BaudRate > 0 {
		serialConfig.BaudRate = config.BaudRate
	}
	if config.DataBits > 0 {
		serialConfig.DataBits = config.DataBits
	}
	if config.StopBits > 0 {
		serialConfig.StopBits = config.StopBits
	}
	if config.Parity != "" {
		serialConfig.Parity = config.Parity
	}

	logger.Info("Creating serial connection",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialConnection(serialConfig, logger)
}

// createTCPConnection fills TCP defaults
func createTCPConnection(config ConnectionConfig, logger *zap.Logger) LineConnection {
	tcpConfig := &TCPConfig{
		Name:         config.Name,
		Host:         config.Host,
		Port:         config.TCPPort,
		KeepAlive:    config.KeepAlive,
		Timeout:      10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	if config.Timeout > 0 {
		tcpConfig.Timeout = config.Timeout
	}
	if config.WriteTimeout > 0 {
		tcpConfig.WriteTimeout = config.WriteTimeout
	}

	logger.Info("Creating TCP connection",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
	)

	return NewTCPConnection(tcpConfig, logger)
}

// ValidateConfig validates configuration for the connection type
func ValidateConfig(config ConnectionConfig) error {
	switch config.Type {
	case model.ConnectionTypeSerial:
		if config.Port == "" {
			return fmt.Errorf("serial port is required")
		}
		if config.BaudRate != 0 && !isValidBaudRate(config.BaudRate) {
			return fmt.Errorf("invalid baud rate: %d", config.BaudRate)
		}
	case model.ConnectionTypeTCP:
		if config.Host == "" {
			return fmt.Errorf("TCP host is required")
		}
		if config.TCPPort < 1 || config.TCPPort > 65535 {
			return fmt.Errorf("invalid port number: %d", config.TCPPort)
		}
	case model.ConnectionTypeSimulated:
	default:
		return fmt.Errorf("unsupported connection type: %s", config.Type)
	}
	return nil
}

func isValidBaudRate(rate int) bool {
	for _, valid := range validBaudRates {
		if rate == valid {
			return true
		}
	}
	return false
}
