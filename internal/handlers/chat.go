package handlers

import (
	"net/http"

	"eduhacktech-backend/internal/middleware"
	"eduhacktech-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ChatHandler serves conversations and messages
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type conversationRequest struct {
	OtherUserID string `json:"otherUserId" validate:"notblank"`
}

// GetOrCreateConversation handles POST /api/v1/chat/conversation
func (h *ChatHandler) GetOrCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	conv, err := h.chat.GetOrCreateConversation(r.Context(), middleware.GetUserID(r.Context()), req.OtherUserID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, conv)
}

// ListConversations handles GET /api/v1/chat/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	views, err := h.chat.ListConversations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, views)
}

// GetMessages handles GET /api/v1/chat/conversation/{conversation_id}/messages
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	markRead := r.URL.Query().Get("markRead") != "false"

	msgs, total, err := h.chat.GetMessages(r.Context(), chi.URLParam(r, "conversation_id"),
		middleware.GetUserID(r.Context()), limit, offset, markRead)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	count := len(msgs)
	respondJSON(w, http.StatusOK, Response{Success: true, Data: msgs, Count: &count, Total: &total})
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"notblank"`
	Text           string `json:"text" validate:"notblank"`
}

// SendMessage handles POST /api/v1/chat/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), req.ConversationID, middleware.GetUserID(r.Context()), req.Text)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, msg)
}

// UnreadCount handles GET /api/v1/chat/unread-count
func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	summary, err := h.chat.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, summary)
}

// MarkRead handles PUT /api/v1/chat/conversation/{conversation_id}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.chat.MarkRead(r.Context(), chi.URLParam(r, "conversation_id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"marked": n})
}
