// internal/model/device.go
package model

import (
	"time"
)

// Device capacities.
const (
	DeviceIDSize      = 10
	DeviceVersionSize = 10
	MaxComponentCount = 6
)

// Device is one sensor node attached to the hub: identity, connection state
// and a fixed set of component slots of which the first ComponentCount are
// active.
//
// A Device is not safe for concurrent use; the owner serializes access.
type Device struct {
	id              text
	version         text
	lastMessageTime time.Time
	connected       bool
	componentCount  int
	components      [MaxComponentCount]Component
}

// ID returns the device identifier.
func (d *Device) ID() string { return d.id.String() }

// SetID stores id, truncated to DeviceIDSize bytes.
func (d *Device) SetID(id string) {
	d.id.set(id, DeviceIDSize)
}

// Version returns the firmware/protocol version.
func (d *Device) Version() string { return d.version.String() }

// SetVersion stores version, truncated to DeviceVersionSize bytes.
func (d *Device) SetVersion(version string) {
	d.version.set(version, DeviceVersionSize)
}

// LastMessageTime returns when the last message from the device arrived.
func (d *Device) LastMessageTime() time.Time { return d.lastMessageTime }

// SetLastMessageTime records the arrival time of a message. Ordering is not checked.
func (d *Device) SetLastMessageTime(t time.Time) { d.lastMessageTime = t }

// Connected reports the connectivity flag.
func (d *Device) Connected() bool { return d.connected }

// SetConnected sets the connectivity flag.
func (d *Device) SetConnected(connected bool) { d.connected = connected }

// ComponentCount returns the number of active component slots.
func (d *Device) ComponentCount() int { return d.componentCount }

// SetComponentCount sets the active slot count, clamped to [0, MaxComponentCount].
func (d *Device) SetComponentCount(n int) {
	switch {
	case n < 0:
		n = 0
	case n > MaxComponentCount:
		n = MaxComponentCount
	}
	d.componentCount = n
}

// Component returns the slot at index for in-place mutation. The index is not
// checked against ComponentCount; callers only treat active slots as meaningful.
func (d *Device) Component(index int) *Component {
	return &d.components[index]
}

// Components returns the active slots.
func (d *Device) Components() []*Component {
	active := make([]*Component, d.componentCount)
	for i := range active {
		active[i] = &d.components[i]
	}
	return active
}

// ResetComponents marks all slots inactive. Slot contents are kept until
// overwritten.
func (d *Device) ResetComponents() {
	d.componentCount = 0
}
