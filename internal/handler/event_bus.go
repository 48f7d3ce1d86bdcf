// internal/handler/event_bus.go
package handler

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/wire"
)

// ErrEventBusFull is returned when a message cannot be queued
var ErrEventBusFull = errors.New("event bus full")

const eventQueueSize = 1000

// EventBus delivers hub messages to subscribed websocket clients. The last
// message of every topic is retained for clients that subscribe later.
type EventBus struct {
	connections *ConnectionManager
	codec       wire.Codec
	events      chan hub.Message
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	retained    map[string]hub.Message
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(connections *ConnectionManager, codec wire.Codec, logger *zap.Logger) *EventBus {
	return &EventBus{
		connections: connections,
		codec:       codec,
		events:      make(chan hub.Message, eventQueueSize),
		done:        make(chan struct{}),
		retained:    make(map[string]hub.Message),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start distributes queued messages until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case msg := <-eb.events:
			eb.distribute(msg)
		case <-eb.done:
			return
		}
	}
}

// Stop ends Start
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.done) })
}

// Publish queues a hub message for delivery
func (eb *EventBus) Publish(ctx context.Context, msg hub.Message) error {
	eb.mutex.Lock()
	eb.retained[msg.Topic] = msg
	eb.mutex.Unlock()

	select {
	case eb.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		eb.logger.Warn("Event bus full, dropping message", zap.String("topic", msg.Topic))
		return ErrEventBusFull
	}
}

// Retained returns the last message of every topic matching filter, in
// topic order.
func (eb *EventBus) Retained(filter string) []hub.Message {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	var messages []hub.Message
	for topic, msg := range eb.retained {
		if hub.Match(filter, topic) {
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Topic < messages[j].Topic })
	return messages
}

// Frame encodes a hub message the way clients receive it
func (eb *EventBus) Frame(msg hub.Message) (Frame, error) {
	data, err := eb.codec.Envelope(msg.Topic, msg.Payload)
	if err != nil {
		return Frame{}, err
	}
	messageType := websocket.TextMessage
	if eb.codec.Binary() {
		messageType = websocket.BinaryMessage
	}
	return Frame{MessageType: messageType, Data: data}, nil
}

// distribute sends a message to every matching subscriber. Slow clients
// miss the message.
func (eb *EventBus) distribute(msg hub.Message) {
	subscribers := eb.connections.GetSubscribers(msg.Topic)
	if len(subscribers) == 0 {
		return
	}

	frame, err := eb.Frame(msg)
	if err != nil {
		eb.logger.Error("Failed to encode event frame", zap.String("topic", msg.Topic), zap.Error(err))
		return
	}

	for _, client := range subscribers {
		if !eb.connections.Send(client, frame) {
			eb.logger.Warn("Client send channel full, dropping message",
				zap.String("client_id", client.ID),
				zap.String("topic", msg.Topic),
			)
		}
	}
}
