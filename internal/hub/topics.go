// internal/hub/topics.go
package hub

import (
	"context"
	"fmt"
	"strings"
)

// Topics names the topics a hub publishes and subscribes to
type Topics struct {
	owner string
	hub   string
}

// NewTopics creates the topic set for a hub
func NewTopics(ownerID, hubID string) Topics {
	return Topics{owner: ownerID, hub: hubID}
}

func (t Topics) hubTopic(name string) string {
	return fmt.Sprintf("%s/hub/%s/%s", t.owner, t.hub, name)
}

// Status is where the hub announces itself
func (t Topics) Status() string { return t.hubTopic("status") }

// Devices carries the device info map
func (t Topics) Devices() string { return t.hubTopic("devices") }

// Sensors carries sensor values
func (t Topics) Sensors() string { return t.hubTopic("sensors") }

// Config is subscribed for hub configuration
func (t Topics) Config() string { return t.hubTopic("config") }

// Actuators is subscribed for actuator values
func (t Topics) Actuators() string { return t.hubTopic("actuators") }

// Device carries the id of the hub a device is attached to
func (t Topics) Device(deviceID string) string {
	return fmt.Sprintf("%s/device/%s", t.owner, deviceID)
}

// Inbound reports whether topic is one the hub accepts messages on
func (t Topics) Inbound(topic string) bool {
	return topic == t.Config() || topic == t.Actuators()
}

// Match reports whether topic matches filter. A trailing "#" segment matches
// any remainder and "+" matches a single segment.
func Match(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}

// Message is one encoded hub message
type Message struct {
	Topic       string
	Payload     []byte
	ContentType string
}

// Publisher delivers hub messages to subscribers
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
