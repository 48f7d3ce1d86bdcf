// internal/handler/websocket_types.go
package handler

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sensaur-hub/internal/hub"
)

// Frame is one websocket message queued for a client
type Frame struct {
	MessageType int
	Data        []byte
}

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan Frame      `json:"-"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	mutex         sync.RWMutex
	subscriptions map[string]bool
}

// NewClient creates a client with an empty subscription set
func NewClient(id string, conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:            id,
		Connection:    conn,
		Send:          make(chan Frame, bufferSize),
		ConnectedAt:   time.Now(),
		subscriptions: make(map[string]bool),
	}
}

// Subscribe adds a topic filter
func (c *Client) Subscribe(filter string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.subscriptions[filter] = true
}

// Unsubscribe removes a topic filter
func (c *Client) Unsubscribe(filter string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.subscriptions, filter)
}

// Subscriptions returns the client's topic filters
func (c *Client) Subscriptions() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	filters := make([]string, 0, len(c.subscriptions))
	for filter := range c.subscriptions {
		filters = append(filters, filter)
	}
	return filters
}

// Matches reports whether any subscription matches topic
func (c *Client) Matches(topic string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for filter := range c.subscriptions {
		if hub.Match(filter, topic) {
			return true
		}
	}
	return false
}

// WebSocketMessage is a control message exchanged with a client. Hub
// messages themselves are sent as codec envelopes.
type WebSocketMessage struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Data      any             `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// Control message types
const (
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePublish     = "publish"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSubscribed  = "subscription_confirmed"
	MessageTypePublished   = "publish_ack"
	MessageTypeError       = "error"
)

// ConnectionManager manages WebSocket connections
type ConnectionManager struct {
	clients map[string]*Client
	stopped bool
	mutex   sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

// Register registers a new client. Clients registered after Stop are
// closed immediately.
func (cm *ConnectionManager) Register(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.stopped {
		close(client.Send)
		return
	}
	cm.clients[client.ID] = client
}

// Unregister unregisters a client and closes its send queue
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if _, ok := cm.clients[client.ID]; ok {
		delete(cm.clients, client.ID)
		close(client.Send)
	}
}

// Stop closes every client
func (cm *ConnectionManager) Stop() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.stopped = true
	for id, client := range cm.clients {
		delete(cm.clients, id)
		close(client.Send)
	}
}

// GetSubscribers returns clients with a subscription matching topic
func (cm *ConnectionManager) GetSubscribers(topic string) []*Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var clients []*Client
	for _, client := range cm.clients {
		if client.Matches(topic) {
			clients = append(clients, client)
		}
	}
	return clients
}

// Send queues a frame for a registered client. It reports false when the
// client is gone or its queue is full.
func (cm *ConnectionManager) Send(client *Client, frame Frame) bool {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if _, ok := cm.clients[client.ID]; !ok {
		return false
	}
	select {
	case client.Send <- frame:
		return true
	default:
		return false
	}
}

// GetStats returns connection statistics
func (cm *ConnectionManager) GetStats() *ConnectionStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(cm.clients),
		Clients:          make([]ClientInfo, 0, len(cm.clients)),
	}

	for _, client := range cm.clients {
		stats.Clients = append(stats.Clients, ClientInfo{
			ID:            client.ID,
			UserAgent:     client.UserAgent,
			RemoteAddr:    client.RemoteAddr,
			ConnectedAt:   client.ConnectedAt,
			Subscriptions: client.Subscriptions(),
		})
	}

	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int          `json:"total_connections"`
	Clients          []ClientInfo `json:"clients"`
}

// ClientInfo describes one connected client
type ClientInfo struct {
	ID            string    `json:"id"`
	UserAgent     string    `json:"user_agent"`
	RemoteAddr    string    `json:"remote_addr"`
	ConnectedAt   time.Time `json:"connected_at"`
	Subscriptions []string  `json:"subscriptions"`
}
