package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
)

// ChatService gates conversations on an accepted connect request and handles messages
type ChatService struct {
	convs          ConversationStore
	msgs           MessageStore
	conns          ConnectionStore
	users          UserStore
	notifier       Notifier
	maxMessageSize int
}

// NewChatService creates a new chat service
func NewChatService(
	convs ConversationStore,
	msgs MessageStore,
	conns ConnectionStore,
	users UserStore,
	notifier Notifier,
	maxMessageSize int,
) *ChatService {
	return &ChatService{
		convs:          convs,
		msgs:           msgs,
		conns:          conns,
		users:          users,
		notifier:       notifier,
		maxMessageSize: maxMessageSize,
	}
}

// sortPair orders two user ids so a pair has a single identity
func sortPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetOrCreateConversation returns the pair's conversation, creating it when the users are connected
func (s *ChatService) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*models.Conversation, error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return nil, apperr.Invalid("otherUserId is required")
	}
	if otherUserID == userID {
		return nil, apperr.Invalid("You cannot chat with yourself")
	}

	userA, userB := sortPair(userID, otherUserID)

	conv, err := s.convs.GetByPair(ctx, userA, userB)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to load conversation", err)
	}

	if _, err := s.users.GetByID(ctx, otherUserID); err != nil {
		return nil, storeErr(err, "User not found", "failed to load user")
	}

	conn, err := s.conns.FindAccepted(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Forbidden("You must be connected to chat with this user")
		}
		return nil, apperr.Internal("failed to check connection", err)
	}

	now := time.Now()
	conv = &models.Conversation{
		ID:            uuid.New().String(),
		UserAID:       userA,
		UserBID:       userB,
		ConnectionID:  conn.ID,
		LastMessageAt: now,
		CreatedAt:     now,
	}

	if err := s.convs.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost the creation race; the winner's row is the conversation
			existing, getErr := s.convs.GetByPair(ctx, userA, userB)
			if getErr != nil {
				return nil, apperr.Internal("failed to load conversation", getErr)
			}
			return existing, nil
		}
		return nil, apperr.Internal("failed to create conversation", err)
	}

	return conv, nil
}

// ConversationView is a conversation seen by one participant
type ConversationView struct {
	*models.Conversation
	OtherUser   UserSummary `json:"otherUser"`
	UnreadCount int         `json:"unreadCount"`
}

// ListConversations returns the user's conversations by most recent message
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list conversations", err)
	}

	counts, err := s.msgs.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to count unread messages", err)
	}
	unread := make(map[string]int, len(counts))
	for _, c := range counts {
		unread[c.ConversationID] = c.Count
	}

	names := newNameLookup(s.users)
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		other := c.Other(userID)
		views = append(views, ConversationView{
			Conversation: c,
			OtherUser:    UserSummary{ID: other, Name: names.name(ctx, other)},
			UnreadCount:  unread[c.ID],
		})
	}
	return views, nil
}

// participantConversation loads a conversation and checks userID belongs to it
func (s *ChatService) participantConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		return nil, storeErr(err, "Conversation not found", "failed to load conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.Forbidden("You are not a participant of this conversation")
	}
	return conv, nil
}

// GetMessages returns a page of messages, oldest first. With markRead the reader's unread
// messages are stamped before the page is read.
func (s *ChatService) GetMessages(ctx context.Context, conversationID, userID string, limit, offset int, markRead bool) ([]*models.Message, int, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	if markRead {
		if _, err := s.msgs.MarkRead(ctx, conversationID, userID, time.Now()); err != nil {
			return nil, 0, apperr.Internal("failed to mark messages read", err)
		}
	}

	msgs, total, err := s.msgs.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("failed to load messages", err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, total, nil
}

// SendMessage stores a message from a participant and bumps the conversation
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID, text string) (*models.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, apperr.Invalid("conversationId is required")
	}

	conv, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid("Message text is required")
	}
	if runes := []rune(text); s.maxMessageSize > 0 && len(runes) > s.maxMessageSize {
		text = strings.TrimRightFunc(string(runes[:s.maxMessageSize]), unicode.IsSpace)
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      time.Now(),
	}

	if err := s.msgs.Create(ctx, msg); err != nil {
		return nil, apperr.Internal("failed to save message", err)
	}

	if err := s.convs.TouchLastMessage(ctx, conv.ID, msg.CreatedAt); err != nil {
		return nil, apperr.Internal("failed to update conversation", err)
	}

	sender := "New message"
	if u, err := s.users.GetByID(ctx, senderID); err == nil {
		sender = u.Name
	}
	s.notifier.Notify(ctx, conv.Other(senderID), Notification{
		Type:  NotifyNewMessage,
		Title: sender,
		Body:  msg.Text,
		Data:  map[string]string{"conversationId": conv.ID, "messageId": msg.ID, "senderId": senderID},
	})

	return msg, nil
}

// MarkRead stamps the reader's unread messages and returns how many changed
func (s *ChatService) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	if _, err := s.participantConversation(ctx, conversationID, readerID); err != nil {
		return 0, err
	}
	n, err := s.msgs.MarkRead(ctx, conversationID, readerID, time.Now())
	if err != nil {
		return 0, apperr.Internal("failed to mark messages read", err)
	}
	return n, nil
}

// UnreadSummary aggregates unread messages for one user
type UnreadSummary struct {
	Total          int            `json:"total"`
	ByConversation map[string]int `json:"byConversation"`
	ByUser         map[string]int `json:"byUser"`
}

// UnreadCount counts messages from other participants the user has not read
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (*UnreadSummary, error) {
	counts, err := s.msgs.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to count unread messages", err)
	}

	summary := &UnreadSummary{
		ByConversation: map[string]int{},
		ByUser:         map[string]int{},
	}
	for _, c := range counts {
		summary.Total += c.Count
		summary.ByConversation[c.ConversationID] += c.Count
		summary.ByUser[c.OtherUserID] += c.Count
	}
	return summary, nil
}
