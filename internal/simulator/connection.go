// internal/simulator/connection.go
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sensaur-hub/internal/model"
	"sensaur-hub/internal/protocol"
)

const queueSize = 64

// Connection is a simulated device speaking the line protocol. It answers
// info and poll commands and records actuator values.
type Connection struct {
	device DeviceFixture
	rng    *rand.Rand
	logger *zap.Logger

	mutex     sync.Mutex
	isOpen    bool
	lines     chan string
	done      chan struct{}
	actuators map[int]string
}

// NewConnection creates a simulated device. An empty fixture id is replaced
// by a random hex id.
func NewConnection(device DeviceFixture, rng *rand.Rand, logger *zap.Logger) *Connection {
	if device.ID == "" {
		device.ID = fmt.Sprintf("%x", rng.Uint32())
	}
	return &Connection{
		device:    device,
		rng:       rng,
		logger:    logger.With(zap.String("protocol", "sim"), zap.String("device_id", device.ID)),
		actuators: make(map[int]string),
	}
}

// Open starts answering commands
func (c *Connection) Open(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isOpen {
		return nil
	}
	c.lines = make(chan string, queueSize)
	c.done = make(chan struct{})
	c.isOpen = true

	c.logger.Info("Simulated device opened", zap.Int("components", len(c.device.Components)))
	return nil
}

// Close stops the device. Pending reads return ErrConnectionClosed.
func (c *Connection) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen {
		return nil
	}
	close(c.done)
	c.isOpen = false
	return nil
}

// IsOpen returns whether the device is open
func (c *Connection) IsOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isOpen
}

// ReadLine returns the next reply line
func (c *Connection) ReadLine(ctx context.Context) (string, error) {
	c.mutex.Lock()
	lines, done, open := c.lines, c.done, c.isOpen
	c.mutex.Unlock()

	if !open {
		return "", protocol.ErrConnectionClosed
	}

	select {
	case line := <-lines:
		return line, nil
	case <-done:
		return "", protocol.ErrConnectionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// WriteLine handles a hub command
func (c *Connection) WriteLine(ctx context.Context, line string) error {
	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isOpen {
		return protocol.ErrConnectionClosed
	}

	switch cmd.Kind {
	case protocol.CommandInfo:
		c.enqueue(c.infoLines()...)
	case protocol.CommandPoll:
		c.enqueue(c.valueLine())
	case protocol.CommandSet:
		if cmd.Index < 0 || cmd.Index >= len(c.device.Components) {
			return fmt.Errorf("component index %d out of range", cmd.Index)
		}
		c.actuators[cmd.Index] = cmd.Value
		c.logger.Info("Setting actuator",
			zap.Int("index", cmd.Index),
			zap.String("value", cmd.Value),
		)
	}
	return nil
}

// Name returns the simulated port name
func (c *Connection) Name() string {
	return "sim:" + c.device.ID
}

// Type returns the connection type
func (c *Connection) Type() model.ConnectionType {
	return model.ConnectionTypeSimulated
}

// DeviceID returns the simulated device id
func (c *Connection) DeviceID() string {
	return c.device.ID
}

// Actuator returns the last value set on the component at index
func (c *Connection) Actuator(index int) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	value, ok := c.actuators[index]
	return value, ok
}

func (c *Connection) infoLines() []string {
	lines := []string{
		"id:" + c.device.ID,
		"version:" + c.device.Version,
		fmt.Sprintf("count:%d", len(c.device.Components)),
	}
	for i, descriptor := range c.device.Components {
		lines = append(lines, fmt.Sprintf("comp:%d:%s", i, descriptor))
	}
	return lines
}

// valueLine reports a random reading for inputs and the last set value for
// outputs.
func (c *Connection) valueLine() string {
	values := make([]string, len(c.device.Components))
	for i, descriptor := range c.device.Components {
		if strings.HasPrefix(descriptor, string(model.DirectionInput)) {
			values[i] = fmt.Sprintf("%.2f", c.device.Min+c.rng.Float64()*(c.device.Max-c.device.Min))
			continue
		}
		values[i] = c.actuators[i]
		if values[i] == "" {
			values[i] = "0"
		}
	}
	return "val:" + strings.Join(values, ",")
}

// enqueue must be called with the mutex held.
func (c *Connection) enqueue(lines ...string) {
	for _, line := range lines {
		select {
		case c.lines <- line:
		default:
			c.logger.Warn("Simulated device queue full, dropping line", zap.String("line", line))
		}
	}
}
