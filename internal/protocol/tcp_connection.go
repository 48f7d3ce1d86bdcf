// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"sensaur-hub/internal/model"
)

// TCPConnection implements LineConnection for serial-over-TCP bridges
type TCPConnection struct {
	config *TCPConfig
	conn   net.Conn
	reader *lineReader
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  ConnectionStats
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) *TCPConnection {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "tcp"),
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		),
	}
}

// Open dials the bridge
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.isOpen {
		return nil
	}

	tc.logger.Info("Opening TCP connection")

	dialer := &net.Dialer{
		Timeout: tc.config.Timeout,
	}
	if tc.config.KeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}

	conn, err := dialer.DialContext(ctx, "tcp", tc.address())
	if err != nil {
		tc.logger.Error("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", tc.address(), err)
	}

	tc.conn = conn
	tc.reader = newLineReader(conn)
	tc.isOpen = true
	tc.stats.IsConnected = true
	tc.stats.LastActivity = time.Now()

	tc.logger.Info("TCP connection opened successfully")
	return nil
}

// Close closes the TCP connection
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil
	}

	tc.reader.stop()
	err := tc.conn.Close()

	tc.conn = nil
	tc.isOpen = false
	tc.stats.IsConnected = false

	if err != nil {
		tc.logger.Error("Failed to close TCP connection", zap.Error(err))
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}

	tc.logger.Info("TCP connection closed successfully")
	return nil
}

// IsOpen returns whether the connection is open
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.isOpen && tc.conn != nil
}

// WriteLine writes line followed by a newline
func (tc *TCPConnection) WriteLine(ctx context.Context, line string) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return ErrConnectionClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if tc.config.WriteTimeout > 0 {
		tc.conn.SetWriteDeadline(time.Now().Add(tc.config.WriteTimeout))
	}

	data := append([]byte(line), '\n')
	if _, err := tc.conn.Write(data); err != nil {
		tc.stats.ErrorCount++
		tc.logger.Error("TCP write failed", zap.Error(err))
		return fmt.Errorf("failed to write to TCP connection: %w", err)
	}

	tc.stats.LinesWritten++
	tc.stats.LastActivity = time.Now()

	tc.logger.Debug("TCP line written", zap.String("line", line))
	return nil
}

// ReadLine returns the next line received from the bridge
func (tc *TCPConnection) ReadLine(ctx context.Context) (string, error) {
	tc.mutex.RLock()
	reader := tc.reader
	open := tc.isOpen
	tc.mutex.RUnlock()

	if !open || reader == nil {
		return "", ErrConnectionClosed
	}

	line, err := reader.next(ctx)
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	if err != nil {
		tc.stats.ErrorCount++
		return "", err
	}

	tc.stats.LinesRead++
	tc.stats.LastActivity = time.Now()
	return line, nil
}

// Name returns the configured name, or host:port
func (tc *TCPConnection) Name() string {
	if tc.config.Name != "" {
		return tc.config.Name
	}
	return tc.address()
}

// Type returns the connection type
func (tc *TCPConnection) Type() model.ConnectionType {
	return model.ConnectionTypeTCP
}

// Stats returns a snapshot of the connection statistics
func (tc *TCPConnection) Stats() ConnectionStats {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.stats
}

func (tc *TCPConnection) address() string {
	return net.JoinHostPort(tc.config.Host, strconv.Itoa(tc.config.Port))
}
