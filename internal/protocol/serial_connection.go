// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"sensaur-hub/internal/model"
)

// SerialConnection implements LineConnection for serial ports
type SerialConnection struct {
	config *SerialConfig
	port   serial.Port
	reader *lineReader
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  ConnectionStats
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config *SerialConfig, logger *zap.Logger) *SerialConnection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", config.Port),
		),
	}
}

// Open opens the serial port. Reads block until a line arrives or the port
// is closed, so no read timeout is configured on the port.
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sc.logger.Info("Opening serial port",
		zap.Int("baud_rate", sc.config.BaudRate),
	)

	mode := &serial.Mode{
		BaudRate: sc.config.BaudRate,
		DataBits: sc.config.DataBits,
		StopBits: serialStopBits(sc.config.StopBits),
		Parity:   serialParity(sc.config.Parity),
	}

	port, err := serial.Open(sc.config.Port, mode)
	if err != nil {
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	sc.port = port
	sc.reader = newLineReader(port)
	sc.isOpen = true
	sc.stats.IsConnected = true
	sc.stats.LastActivity = time.Now()

	sc.logger.Info("Serial port opened successfully")
	return nil
}

// Close closes the serial port
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	sc.reader.stop()
	err := sc.port.Close()

	sc.port = nil
	sc.isOpen = false
	sc.stats.IsConnected = false

	if err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sc.logger.Info("Serial port closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen && sc.port != nil
}

// WriteLine writes line followed by a newline
func (sc *SerialConnection) WriteLine(ctx context.Context, line string) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return ErrConnectionClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data := append([]byte(line), '\n')
	n, err := sc.port.Write(data)
	if err != nil {
		sc.stats.ErrorCount++
		sc.logger.Error("Serial write failed", zap.Error(err))
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	if n != len(data) {
		sc.stats.ErrorCount++
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	sc.stats.LinesWritten++
	sc.stats.LastActivity = time.Now()

	sc.logger.Debug("Serial line written", zap.String("line", line))
	return nil
}

// ReadLine returns the next line received on the port
func (sc *SerialConnection) ReadLine(ctx context.Context) (string, error) {
	sc.mutex.RLock()
	reader := sc.reader
	open := sc.isOpen
	sc.mutex.RUnlock()

	if !open || reader == nil {
		return "", ErrConnectionClosed
	}

	line, err := reader.next(ctx)
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if err != nil {
		sc.stats.ErrorCount++
		return "", err
	}

	sc.stats.LinesRead++
	sc.stats.LastActivity = time.Now()
	return line, nil
}

// Name returns the configured name, or the port path
func (sc *SerialConnection) Name() string {
	if sc.config.Name != "" {
		return sc.config.Name
	}
	return sc.config.Port
}

// Type returns the connection type
func (sc *SerialConnection) Type() model.ConnectionType {
	return model.ConnectionTypeSerial
}

// Stats returns a snapshot of the connection statistics
func (sc *SerialConnection) Stats() ConnectionStats {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.stats
}

func serialParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

func serialStopBits(bits int) serial.StopBits {
	if bits == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}
