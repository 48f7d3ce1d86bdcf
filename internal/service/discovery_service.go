// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sensaur-hub/internal/config"
	"sensaur-hub/internal/discovery"
	"sensaur-hub/internal/discovery/serial"
	"sensaur-hub/internal/protocol"
	"sensaur-hub/internal/utils"
)

// ScanAll scans with every registered scanner
const ScanAll = "all"

// DiscoveryService finds ports sensor devices may be attached to
type DiscoveryService struct {
	scannerManager *discovery.ScannerManager
	config         *config.DiscoveryConfig
	logger         *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service with the serial scanner
func NewDiscoveryService(cfg *config.DiscoveryConfig, logger *zap.Logger) *DiscoveryService {
	ds := newDiscoveryService(cfg, logger)

	serialScanner := serial.NewScanner(logger, &serial.Config{
		BaudRate:     cfg.BaudRate,
		PortPatterns: cfg.PortPatterns,
		Exclude:      cfg.Exclude,
	})
	if serialScanner.IsAvailable() {
		ds.scannerManager.RegisterScanner(serialScanner)
	}

	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", ds.scannerManager.GetAvailableScanners()),
	)
	return ds
}

func newDiscoveryService(cfg *config.DiscoveryConfig, logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		scannerManager: discovery.NewScannerManager(logger),
		config:         cfg,
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// AvailableScanners returns the scanner types that can run
func (ds *DiscoveryService) AvailableScanners() []string {
	return ds.scannerManager.GetAvailableScanners()
}

// ScanPorts runs one scanner, or all of them for ScanAll
func (ds *DiscoveryService) ScanPorts(ctx context.Context, scanType string) ([]*discovery.DiscoveredPort, error) {
	ds.logger.Info("Starting port scan", zap.String("type", scanType))

	var ports []*discovery.DiscoveredPort
	var err error
	if scanType == "" || scanType == ScanAll {
		ports, err = ds.scannerManager.ScanAll(ctx)
	} else {
		ports, err = ds.scannerManager.ScanByType(ctx, scanType)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	ds.logger.Info("Port scan completed",
		zap.Int("ports_found", len(ports)),
		zap.String("scan_type", scanType),
	)
	return ports, nil
}

// DiscoverConnections scans all ports and creates a connection for each one
// not listed in known. Ports whose connection cannot be created are logged
// and skipped.
func (ds *DiscoveryService) DiscoverConnections(ctx context.Context, known map[string]bool) ([]protocol.LineConnection, error) {
	ports, err := ds.ScanPorts(ctx, ScanAll)
	if err != nil {
		return nil, err
	}

	var connections []protocol.LineConnection
	for _, port := range ports {
		if known[port.Port] {
			continue
		}

		conn, err := protocol.CreateConnection(protocol.ConnectionConfig{
			Name:     port.Port,
			Type:     port.ConnectionType,
			Port:     port.Port,
			BaudRate: port.BaudRate,
		}, ds.logger.Logger)
		if err != nil {
			ds.logger.Warn("Skipping discovered port", zap.String("port", port.Port), zap.Error(err))
			continue
		}
		connections = append(connections, conn)
	}
	return connections, nil
}
