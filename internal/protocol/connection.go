// internal/protocol/connection.go
package protocol

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"sensaur-hub/internal/model"
)

// ErrConnectionClosed is returned by reads and writes on a closed connection
var ErrConnectionClosed = errors.New("connection closed")

// LineConnection represents a newline framed link to a sensor device
type LineConnection interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication, one message per line without terminator
	ReadLine(ctx context.Context) (string, error)
	WriteLine(ctx context.Context, line string) error

	// Connection information
	Name() string
	Type() model.ConnectionType
}

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Name     string `json:"name"`
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// TCPConfig represents configuration of a serial-over-TCP bridge
type TCPConfig struct {
	Name         string        `json:"name"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	KeepAlive    bool          `json:"keep_alive"`
	Timeout      time.Duration `json:"timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// ConnectionStats provides line-level statistics
type ConnectionStats struct {
	LinesWritten int64     `json:"lines_written"`
	LinesRead    int64     `json:"lines_read"`
	ErrorCount   int64     `json:"error_count"`
	LastActivity time.Time `json:"last_activity"`
	IsConnected  bool      `json:"is_connected"`
}

// lineReader pumps lines from r into a channel until r fails or stop is
// called. Readers observe a closed channel once the source is gone.
type lineReader struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
	mu    sync.Mutex
	err   error
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		lines: make(chan string, 16),
		done:  make(chan struct{}),
	}
	go lr.run(bufio.NewReader(r))
	return lr
}

func (lr *lineReader) run(r *bufio.Reader) {
	defer close(lr.lines)
	for {
		line, err := r.ReadString('\n')
		// a final unterminated line is still delivered
		if len(line) > 0 {
			select {
			case lr.lines <- trimLine(line):
			case <-lr.done:
				return
			}
		}
		if err != nil {
			lr.mu.Lock()
			lr.err = err
			lr.mu.Unlock()
			return
		}
	}
}

// stop releases the pump. The underlying reader must be closed separately.
func (lr *lineReader) stop() {
	lr.once.Do(func() { close(lr.done) })
}

// next waits for a line, the end of the source, or ctx.
func (lr *lineReader) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-lr.lines:
		if !ok {
			return "", lr.closeErr()
		}
		return line, nil
	case <-lr.done:
		return "", ErrConnectionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (lr *lineReader) closeErr() error {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.err == nil || errors.Is(lr.err, io.EOF) {
		return ErrConnectionClosed
	}
	return errors.Join(ErrConnectionClosed, lr.err)
}

func trimLine(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
