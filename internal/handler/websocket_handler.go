// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sensaur-hub/internal/hub"
	"sensaur-hub/internal/utils"
)

const (
	clientBufferSize = 256
	pongWait         = 60 * time.Second
	pingPeriod       = 54 * time.Second
	writeWait        = 10 * time.Second
	inboundTimeout   = 10 * time.Second
)

// MessageHandler applies messages published by clients on inbound topics
type MessageHandler interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// WebSocketHandler lets clients subscribe to hub topics and publish to the
// hub's inbound topics
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	connections *ConnectionManager
	eventBus    *EventBus
	inbound     MessageHandler
	topics      hub.Topics
	logger      *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. An empty origin list
// or "*" accepts every origin.
func NewWebSocketHandler(
	connections *ConnectionManager,
	eventBus *EventBus,
	inbound MessageHandler,
	topics hub.Topics,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		connections: connections,
		eventBus:    eventBus,
		inbound:     inbound,
		topics:      topics,
		logger:      utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/ws", h.HandleConnection)
}

// HandleConnection upgrades a client connection
// @Summary Hub message stream
// @Description Upgrade to a WebSocket. Initial topic filters may be passed as a comma separated "topics" query parameter.
// @Tags WebSocket
// @Param topics query string false "Topic filters, + and # wildcards allowed"
// @Success 101 "Switching protocols"
// @Router /ws [get]
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := NewClient(uuid.New().String(), conn, clientBufferSize)
	client.UserAgent = c.Request.UserAgent()
	client.RemoteAddr = c.Request.RemoteAddr

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	go h.handleClientWrite(client)

	for _, filter := range strings.Split(c.Query("topics"), ",") {
		if filter = strings.TrimSpace(filter); filter != "" {
			h.subscribe(client, filter)
		}
	}

	go h.handleClientRead(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			return
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Warn("Failed to parse WebSocket message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			h.sendError(client, "", "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(frame.MessageType, frame.Data); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case MessageTypeSubscribe:
		if message.Topic == "" {
			h.sendError(client, message.RequestID, "topic is required")
			return
		}
		h.subscribe(client, message.Topic)

	case MessageTypeUnsubscribe:
		client.Unsubscribe(message.Topic)
		h.logger.Info("Client unsubscribed from topic",
			zap.String("client_id", client.ID),
			zap.String("topic", message.Topic),
		)

	case MessageTypePublish:
		h.handlePublish(client, message)

	case MessageTypePing:
		h.sendMessage(client, &WebSocketMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})

	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, message.RequestID, "unknown message type: "+message.Type)
	}
}

// subscribe adds a filter and replays the retained messages it matches
func (h *WebSocketHandler) subscribe(client *Client, filter string) {
	client.Subscribe(filter)
	h.logger.Info("Client subscribed to topic",
		zap.String("client_id", client.ID),
		zap.String("topic", filter),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      MessageTypeSubscribed,
		Topic:     filter,
		Timestamp: time.Now(),
	})

	for _, msg := range h.eventBus.Retained(filter) {
		frame, err := h.eventBus.Frame(msg)
		if err != nil {
			h.logger.Error("Failed to encode retained message", zap.String("topic", msg.Topic), zap.Error(err))
			continue
		}
		h.connections.Send(client, frame)
	}
}

// handlePublish forwards a client message to the hub
func (h *WebSocketHandler) handlePublish(client *Client, message *WebSocketMessage) {
	if !h.topics.Inbound(message.Topic) {
		h.sendError(client, message.RequestID, "topic does not accept messages: "+message.Topic)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	if err := h.inbound.HandleMessage(ctx, message.Topic, message.Payload); err != nil {
		h.logger.Warn("Inbound message failed",
			zap.String("client_id", client.ID),
			zap.String("topic", message.Topic),
			zap.Error(err),
		)
		h.sendError(client, message.RequestID, err.Error())
		return
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      MessageTypePublished,
		Topic:     message.Topic,
		Timestamp: time.Now(),
		RequestID: message.RequestID,
	})
}

// sendMessage sends a control message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.Send(client, Frame{MessageType: websocket.TextMessage, Data: messageBytes}) {
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, requestID, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      MessageTypeError,
		Data:      gin.H{"error": errorMsg},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}

// Stats returns websocket client statistics
// @Summary WebSocket statistics
// @Description List connected WebSocket clients and their subscriptions
// @Tags WebSocket
// @Produce json
// @Success 200 {object} utils.APIResponse{data=ConnectionStats}
// @Router /ws/stats [get]
func (h *WebSocketHandler) Stats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "WebSocket statistics retrieved", h.GetConnectionStats())
}
