// internal/service/connections.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sensaur-hub/internal/config"
	"sensaur-hub/internal/model"
	"sensaur-hub/internal/protocol"
	"sensaur-hub/internal/simulator"
)

// ConnectionConfig converts a configured device entry
func ConnectionConfig(entry config.DeviceEntry) protocol.ConnectionConfig {
	return protocol.ConnectionConfig{
		Name:         entry.Name,
		Type:         model.ParseConnectionType(entry.Type),
		Port:         entry.Port,
		BaudRate:     entry.BaudRate,
		DataBits:     entry.DataBits,
		StopBits:     entry.StopBits,
		Parity:       entry.Parity,
		Host:         entry.Host,
		TCPPort:      entry.TCPPort,
		KeepAlive:    entry.KeepAlive,
		Timeout:      entry.Timeout,
		WriteTimeout: entry.WriteTimeout,
	}
}

// BuildConnections creates the connections of the configured devices and,
// when enabled, the simulated devices.
func BuildConnections(cfg *config.Config, logger *zap.Logger) ([]protocol.LineConnection, error) {
	var connections []protocol.LineConnection

	for i, entry := range cfg.Devices {
		conn, err := protocol.CreateConnection(ConnectionConfig(entry), logger)
		if errors.Is(err, protocol.ErrSimulated) {
			logger.Warn("Simulated devices are configured in the simulator section, skipping entry",
				zap.Int("index", i),
				zap.String("name", entry.Name),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("device %d (%s): %w", i, entry.Name, err)
		}
		connections = append(connections, conn)
	}

	if cfg.Simulator.Enabled {
		fixture := simulator.DefaultFixture()
		if cfg.Simulator.Fixture != "" {
			loaded, err := simulator.LoadFixture(cfg.Simulator.Fixture)
			if err != nil {
				return nil, err
			}
			fixture = loaded
		}
		for _, conn := range simulator.NewConnections(fixture, cfg.Simulator.Seed, logger) {
			connections = append(connections, conn)
		}
	}

	return connections, nil
}

// connectionPorts returns the serial ports already claimed by connections
func connectionPorts(cfg *config.Config) map[string]bool {
	ports := make(map[string]bool)
	for _, entry := range cfg.Devices {
		if entry.Port != "" {
			ports[entry.Port] = true
		}
	}
	return ports
}

// SetupConnections builds all connections, including discovered serial
// ports when discovery is enabled, and registers them with the service.
func SetupConnections(ctx context.Context, hs *HubService, ds *DiscoveryService, cfg *config.Config, logger *zap.Logger) (int, error) {
	connections, err := BuildConnections(cfg, logger)
	if err != nil {
		return 0, err
	}

	if cfg.Discovery.Enabled && ds != nil {
		discovered, err := ds.DiscoverConnections(ctx, connectionPorts(cfg))
		if err != nil {
			logger.Warn("Port discovery failed", zap.Error(err))
		}
		connections = append(connections, discovered...)
	}

	for _, conn := range connections {
		if err := hs.AddConnection(conn); err != nil {
			return 0, err
		}
	}
	return len(connections), nil
}
