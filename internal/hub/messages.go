// internal/hub/messages.go
package hub

import (
	"fmt"
	"time"

	"sensaur-hub/internal/model"
)

// ComponentRecord is a component as published in device info: its external
// id followed by the descriptor record.
type ComponentRecord struct {
	ID    string `json:"id"`
	Dir   string `json:"dir"`
	Type  string `json:"type"`
	Model string `json:"model"`
	Units string `json:"units"`
}

// DeviceInfo is the published description of one device
type DeviceInfo struct {
	Version    string            `json:"version"`
	Components []ComponentRecord `json:"components"`
}

// Status is the hub status message
type Status struct {
	HubID           string  `json:"hub_id"`
	OwnerID         string  `json:"owner_id"`
	Host            string  `json:"host"`
	PollingInterval float64 `json:"polling_interval"`
	FirmwareURL     string  `json:"firmware_url,omitempty"`
	Devices         int     `json:"devices"`
	Online          int     `json:"online"`
}

// ConfigMessage is received on the config topic. Absent fields are nil.
type ConfigMessage struct {
	PollingInterval *float64 `json:"polling_interval,omitempty"`
	FirmwareURL     *string  `json:"firmware_url,omitempty"`
}

// ActuatorTarget is one resolved actuator value
type ActuatorTarget struct {
	Port        string `json:"port"`
	DeviceID    string `json:"device_id"`
	ComponentID string `json:"component_id"`
	Index       int    `json:"index"`
	Value       string `json:"value"`
}

// ComponentSnapshot is a component with its slot and last value
type ComponentSnapshot struct {
	ComponentRecord
	Index int    `json:"index"`
	Value string `json:"value"`
}

// DeviceSnapshot is a copy of a device's state, safe to use outside the hub
type DeviceSnapshot struct {
	Port            string              `json:"port"`
	ID              string              `json:"id"`
	Version         string              `json:"version"`
	Status          model.DeviceStatus  `json:"status"`
	LastMessageTime *time.Time          `json:"last_message_time,omitempty"`
	ComponentCount  int                 `json:"component_count"`
	Components      []ComponentSnapshot `json:"components"`
}

// SensorReading is one input component value of a connected device
type SensorReading struct {
	DeviceID    string
	ComponentID string
	Value       string
}

// DeviceInfos builds the devices message, keyed by device id. Devices that
// have not reported an id yet are left out.
func (h *Hub) DeviceInfos() map[string]DeviceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make(map[string]DeviceInfo)
	for _, port := range h.ports {
		device := h.devices[port]
		if device.ID() == "" {
			continue
		}
		infos[device.ID()] = DeviceInfo{
			Version:    device.Version(),
			Components: componentRecords(device),
		}
	}
	return infos
}

// DeviceIDs returns the ids of identified devices in attach order
func (h *Hub) DeviceIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ids []string
	for _, port := range h.ports {
		if id := h.devices[port].ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// SensorValues builds the sensors message: the last value of every input
// component of connected devices, keyed by component id. Components that
// have not reported a value are left out.
func (h *Hub) SensorValues() map[string]string {
	values := make(map[string]string)
	for _, r := range h.SensorReadings() {
		values[r.ComponentID] = r.Value
	}
	return values
}

// SensorReadings returns the same data as SensorValues in attach order
func (h *Hub) SensorReadings() []SensorReading {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var readings []SensorReading
	for _, port := range h.ports {
		device := h.devices[port]
		if !device.Connected() || device.ID() == "" {
			continue
		}
		for _, c := range device.Components() {
			if !c.IsInput() || c.Value() == "" {
				continue
			}
			readings = append(readings, SensorReading{
				DeviceID:    device.ID(),
				ComponentID: ComponentID(device, c),
				Value:       c.Value(),
			})
		}
	}
	return readings
}

// Status builds the hub status message
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := Status{
		HubID:           h.id,
		OwnerID:         h.ownerID,
		Host:            h.host,
		PollingInterval: h.pollingInterval.Seconds(),
		FirmwareURL:     h.firmwareURL,
		Devices:         len(h.devices),
	}
	for _, device := range h.devices {
		if device.Connected() {
			status.Online++
		}
	}
	return status
}

// Devices returns snapshots of all attached devices in attach order
func (h *Hub) Devices() []DeviceSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshots := make([]DeviceSnapshot, 0, len(h.ports))
	for _, port := range h.ports {
		snapshots = append(snapshots, snapshot(port, h.devices[port]))
	}
	return snapshots
}

// Device returns the snapshot of the device with the given id
func (h *Hub) Device(deviceID string) (DeviceSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	port, device, ok := h.findDevice(deviceID)
	if !ok {
		return DeviceSnapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return snapshot(port, device), nil
}

// DeviceAt returns the snapshot of the device attached on port
func (h *Hub) DeviceAt(port string) (DeviceSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	device, ok := h.devices[port]
	if !ok {
		return DeviceSnapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, port)
	}
	return snapshot(port, device), nil
}

// Component returns the info record of an active component slot
func (h *Hub) Component(deviceID string, index int) (ComponentSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, device, ok := h.findDevice(deviceID)
	if !ok {
		return ComponentSnapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	if index < 0 || index >= device.ComponentCount() {
		return ComponentSnapshot{}, fmt.Errorf("%w: %s[%d]", ErrComponentNotFound, deviceID, index)
	}
	return componentSnapshot(device, index), nil
}

func (h *Hub) findDevice(deviceID string) (string, *model.Device, bool) {
	for _, port := range h.ports {
		if device := h.devices[port]; device.ID() == deviceID && deviceID != "" {
			return port, device, true
		}
	}
	return "", nil, false
}

func componentRecords(device *model.Device) []ComponentRecord {
	records := make([]ComponentRecord, 0, device.ComponentCount())
	for _, c := range device.Components() {
		records = append(records, componentRecord(device, c))
	}
	return records
}

func componentRecord(device *model.Device, c *model.Component) ComponentRecord {
	info := c.Info()
	return ComponentRecord{
		ID:    ComponentID(device, c),
		Dir:   info.Dir,
		Type:  info.Type,
		Model: info.Model,
		Units: info.Units,
	}
}

func componentSnapshot(device *model.Device, index int) ComponentSnapshot {
	c := device.Component(index)
	return ComponentSnapshot{
		ComponentRecord: componentRecord(device, c),
		Index:           index,
		Value:           c.Value(),
	}
}

func snapshot(port string, device *model.Device) DeviceSnapshot {
	s := DeviceSnapshot{
		Port:           port,
		ID:             device.ID(),
		Version:        device.Version(),
		Status:         model.StatusOf(device),
		ComponentCount: device.ComponentCount(),
		Components:     make([]ComponentSnapshot, 0, device.ComponentCount()),
	}
	if t := device.LastMessageTime(); !t.IsZero() {
		s.LastMessageTime = &t
	}
	for i := 0; i < device.ComponentCount(); i++ {
		s.Components = append(s.Components, componentSnapshot(device, i))
	}
	return s
}
