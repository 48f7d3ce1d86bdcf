// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	goserial "go.bug.st/serial"
	"go.uber.org/zap"

	"sensaur-hub/internal/discovery"
	"sensaur-hub/internal/model"
)

// Scanner lists serial ports that match the configured patterns
type Scanner struct {
	logger    *zap.Logger
	config    *Config
	listPorts func() ([]string, error)
}

// Config for serial scanner
type Config struct {
	BaudRate     int      `json:"baud_rate"`
	PortPatterns []string `json:"port_patterns"`
	Exclude      []string `json:"exclude"`
}

// NewScanner creates a new serial scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.BaudRate == 0 {
		config.BaudRate = 9600
	}
	if len(config.PortPatterns) == 0 {
		config.PortPatterns = DefaultPortPatterns()
	}

	return &Scanner{
		logger:    logger.With(zap.String("scanner", "serial")),
		config:    config,
		listPorts: goserial.GetPortsList,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable reports whether serial ports can be enumerated
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan lists serial ports and keeps those matching a pattern
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ports, err := s.listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var found []*discovery.DiscoveredPort
	for _, port := range ports {
		if !s.matches(port) {
			s.logger.Debug("Skipping serial port", zap.String("port", port))
			continue
		}
		found = append(found, &discovery.DiscoveredPort{
			ConnectionType: model.ConnectionTypeSerial,
			Port:           port,
			BaudRate:       s.config.BaudRate,
		})
	}

	s.logger.Info("Serial scan completed",
		zap.Int("ports_listed", len(ports)),
		zap.Int("ports_matched", len(found)),
	)
	return found, nil
}

func (s *Scanner) matches(port string) bool {
	for _, pattern := range s.config.Exclude {
		if ok, _ := filepath.Match(pattern, port); ok {
			return false
		}
	}
	for _, pattern := range s.config.PortPatterns {
		if ok, _ := filepath.Match(pattern, port); ok {
			return true
		}
	}
	return false
}

// DefaultPortPatterns returns the usual names of USB serial adapters
func DefaultPortPatterns() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"COM*"}
	case "darwin":
		return []string{"/dev/cu.usbserial*", "/dev/cu.usbmodem*"}
	default:
		return []string{"/dev/ttyUSB*", "/dev/ttyACM*"}
	}
}
