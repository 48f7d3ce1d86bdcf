// internal/hub/hub.go
package hub

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"sensaur-hub/internal/model"
	"sensaur-hub/internal/protocol"
)

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrComponentNotFound = errors.New("component not found")
	ErrNotActuator       = errors.New("component is not an actuator")
	ErrInvalidConfig     = errors.New("invalid hub config")
)

// Options represents the identity and defaults of a hub
type Options struct {
	ID              string
	OwnerID         string
	Host            string
	PollingInterval time.Duration
	FirmwareURL     string
}

// Hub aggregates the devices attached to this hub, one per connection.
// All device state is accessed under the hub lock.
type Hub struct {
	mu              sync.RWMutex
	id              string
	ownerID         string
	host            string
	pollingInterval time.Duration
	firmwareURL     string
	devices         map[string]*model.Device // by connection name
	ports           []string                 // attach order
}

// New creates a hub with no devices
func New(opts Options) *Hub {
	return &Hub{
		id:              opts.ID,
		ownerID:         opts.OwnerID,
		host:            opts.Host,
		pollingInterval: opts.PollingInterval,
		firmwareURL:     opts.FirmwareURL,
		devices:         make(map[string]*model.Device),
	}
}

// ID returns the hub id
func (h *Hub) ID() string { return h.id }

// OwnerID returns the owner the hub publishes for
func (h *Hub) OwnerID() string { return h.ownerID }

// Topics returns the topic names of this hub
func (h *Hub) Topics() Topics {
	return NewTopics(h.ownerID, h.id)
}

// PollingInterval returns the current polling interval
func (h *Hub) PollingInterval() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pollingInterval
}

// FirmwareURL returns the last firmware url received
func (h *Hub) FirmwareURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.firmwareURL
}

// Attach registers a fresh device for the connection named port. A device
// already attached on that port is cleared.
func (h *Hub) Attach(port string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.devices[port]; !ok {
		h.ports = append(h.ports, port)
	}
	device := &model.Device{}
	device.SetConnected(true)
	h.devices[port] = device
}

// Detach marks the device on port disconnected. Its identity is kept so it
// is still reported, and its components are reset.
func (h *Hub) Detach(port string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	device, ok := h.devices[port]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, port)
	}
	device.SetConnected(false)
	device.ResetComponents()
	return nil
}

// HandleLine applies one device line received on port at the given time and
// returns the parsed message.
func (h *Hub) HandleLine(port, line string, at time.Time) (protocol.Message, error) {
	msg := protocol.ParseLine(line)

	h.mu.Lock()
	defer h.mu.Unlock()

	device, ok := h.devices[port]
	if !ok {
		return msg, fmt.Errorf("%w: %s", ErrDeviceNotFound, port)
	}

	switch msg.Kind {
	case protocol.MessageID:
		device.SetID(msg.Text)
	case protocol.MessageVersion:
		device.SetVersion(msg.Text)
	case protocol.MessageCount:
		device.ResetComponents()
		device.SetComponentCount(msg.Count)
	case protocol.MessageDescriptor:
		if msg.Index >= 0 && msg.Index < model.MaxComponentCount {
			device.Component(msg.Index).SetInfo(msg.Descriptor)
		}
	case protocol.MessageValues:
		for i, value := range msg.Values {
			if i >= device.ComponentCount() {
				break
			}
			device.Component(i).SetValue(value)
		}
	}

	device.SetConnected(true)
	device.SetLastMessageTime(at)
	return msg, nil
}

// ApplyConfig applies a config message. Fields that are absent are left
// unchanged.
func (h *Hub) ApplyConfig(cfg ConfigMessage) error {
	var interval time.Duration
	if cfg.PollingInterval != nil {
		d, err := pollingDuration(*cfg.PollingInterval)
		if err != nil {
			return err
		}
		interval = d
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg.PollingInterval != nil {
		h.pollingInterval = interval
	}
	if cfg.FirmwareURL != nil {
		h.firmwareURL = *cfg.FirmwareURL
	}
	return nil
}

// maxPollingSeconds is the largest interval a time.Duration can hold
const maxPollingSeconds = float64(math.MaxInt64) / float64(time.Second)

// pollingDuration converts a polling interval in seconds. Values that
// round to zero or do not fit a time.Duration are rejected.
func pollingDuration(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds >= maxPollingSeconds {
		return 0, fmt.Errorf("%w: polling_interval out of range: %g", ErrInvalidConfig, seconds)
	}
	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		return 0, fmt.Errorf("%w: polling_interval must be positive", ErrInvalidConfig)
	}
	return d, nil
}

// ResolveActuators maps component ids to the connections and slots that
// accept them. Targets are returned in component id order; ids that do not
// name an output component of a connected device are reported in the error.
func (h *Hub) ResolveActuators(values map[string]string) ([]ActuatorTarget, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var targets []ActuatorTarget
	var errs []error
	for _, id := range ids {
		port, device, index, ok := h.findComponent(id)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrComponentNotFound, id))
			continue
		}
		if !device.Component(index).IsOutput() {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotActuator, id))
			continue
		}
		targets = append(targets, ActuatorTarget{
			Port:        port,
			DeviceID:    device.ID(),
			ComponentID: id,
			Index:       index,
			Value:       values[id],
		})
	}
	return targets, errors.Join(errs...)
}

// Ports returns the attached connection names in attach order
func (h *Hub) Ports() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.ports...)
}

// findComponent looks up a component id among connected devices.
func (h *Hub) findComponent(componentID string) (string, *model.Device, int, bool) {
	for _, port := range h.ports {
		device := h.devices[port]
		if !device.Connected() || device.ID() == "" {
			continue
		}
		for i, c := range device.Components() {
			if ComponentID(device, c) == componentID {
				return port, device, i, true
			}
		}
	}
	return "", nil, 0, false
}

// ComponentID builds the external id of a component: the device id and the
// component's id suffix joined by a dash.
func ComponentID(device *model.Device, component *model.Component) string {
	return device.ID() + "-" + component.IDSuffix()
}
