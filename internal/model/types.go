// internal/model/types.go
package model

import "strings"

// ConnectionType represents how a sensor device is reached
type ConnectionType string

const (
	ConnectionTypeSerial    ConnectionType = "SERIAL"
	ConnectionTypeTCP       ConnectionType = "TCP"
	ConnectionTypeSimulated ConnectionType = "SIM"
)

// ParseConnectionType maps a config value (any case) to a ConnectionType.
// Unknown values are returned unchanged so callers can report them.
func ParseConnectionType(s string) ConnectionType {
	switch strings.ToLower(s) {
	case "serial":
		return ConnectionTypeSerial
	case "tcp":
		return ConnectionTypeTCP
	case "sim", "simulator":
		return ConnectionTypeSimulated
	default:
		return ConnectionType(s)
	}
}

// DeviceStatus represents the reported state of a device connection
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "ONLINE"
	DeviceStatusOffline DeviceStatus = "OFFLINE"
)

// StatusOf returns the status a device is reported with.
func StatusOf(d *Device) DeviceStatus {
	if d.Connected() {
		return DeviceStatusOnline
	}
	return DeviceStatusOffline
}
