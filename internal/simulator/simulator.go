// internal/simulator/simulator.go
package simulator

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// NewConnections creates one simulated device per fixture entry. Each device
// draws from its own source derived from seed; a zero seed uses the current
// time.
func NewConnections(fixture *Fixture, seed int64, logger *zap.Logger) []*Connection {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	connections := make([]*Connection, 0, len(fixture.Devices))
	for i, device := range fixture.Devices {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		conn := NewConnection(device, rng, logger)
		logger.Info("Loaded simulated device",
			zap.String("device_id", conn.DeviceID()),
			zap.Strings("components", device.Components),
		)
		connections = append(connections, conn)
	}
	return connections
}
