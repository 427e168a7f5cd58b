package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/middleware"
	"eduhacktech-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the SPA is served from a different origin
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
	chat        *services.ChatService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService, chat *services.ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		chat:        chat,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.ValidateWebSocketToken(r.Context(), r.URL.Query().Get("token"), h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := identity.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.keepAlive(ctx, userID)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if summary, err := h.chat.UnreadCount(ctx, userID); err == nil {
		h.send(userID, services.WSMessage{
			Type: "unread_count",
			Data: map[string]string{"total": strconv.Itoa(summary.Total)},
		})
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(userID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, userID, msg); err != nil {
			log.Debug().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(userID, apperr.PublicMessage(err))
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) error {
	switch msg.Type {
	case "ping":
		h.send(userID, services.WSMessage{Type: "pong"})
		return nil
	case "send_message":
		return h.handleSendMessage(ctx, userID, msg)
	case "mark_read":
		_, err := h.chat.MarkRead(ctx, msg.Data["conversationId"], userID)
		return err
	default:
		h.sendError(userID, "Unknown message type")
		return nil
	}
}

// handleSendMessage mirrors POST /chat/messages over the socket
func (h *WebSocketHandler) handleSendMessage(ctx context.Context, userID string, msg services.WSMessage) error {
	sent, err := h.chat.SendMessage(ctx, msg.Data["conversationId"], userID, msg.Message)
	if err != nil {
		return err
	}
	h.send(userID, services.WSMessage{
		Type:    "message_sent",
		Message: sent.Text,
		Data:    map[string]string{"conversationId": sent.ConversationID, "messageId": sent.ID},
	})
	return nil
}

// keepAlive pings the client until ctx is done
func (h *WebSocketHandler) keepAlive(ctx context.Context, userID string) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.hub.Ping(userID); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(userID string, msg services.WSMessage) {
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to send WebSocket message")
	}
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	h.send(userID, services.WSMessage{Type: "error", Message: message})
}
