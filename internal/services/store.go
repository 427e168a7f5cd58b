package services

import (
	"context"
	"time"

	"eduhacktech-backend/internal/models"
)

// Storage contracts consumed by the services. Both the PostgreSQL repositories and the
// in-memory store satisfy them; lookups return repository.ErrNotFound and unique
// violations return repository.ErrDuplicate.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	UpdateRole(ctx context.Context, userID, role string) error
}

type CardStore interface {
	Upsert(ctx context.Context, card *models.Card) (*models.Card, error)
	GetByUserID(ctx context.Context, userID string) (*models.Card, error)
	UpdateActive(ctx context.Context, userID, active string, at time.Time) (*models.Card, error)
	ListActive(ctx context.Context, excludeUserID string) ([]*models.Card, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.Card, error)
	CountActive(ctx context.Context) (int64, error)
}

type ConnectionStore interface {
	Create(ctx context.Context, req *models.ConnectionRequest) error
	GetByID(ctx context.Context, id string) (*models.ConnectionRequest, error)
	GetByPair(ctx context.Context, fromUserID, toUserID string) (*models.ConnectionRequest, error)
	FindAccepted(ctx context.Context, userA, userB string) (*models.ConnectionRequest, error)
	ListForUser(ctx context.Context, userID string) ([]*models.ConnectionRequest, error)
	Resolve(ctx context.Context, id, status string, at time.Time) (bool, error)
}

type ConversationStore interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByPair(ctx context.Context, userAID, userBID string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}

type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*models.Message, int, error)
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	UnreadCounts(ctx context.Context, userID string) ([]models.UnreadCount, error)
}

type EventStore interface {
	Create(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	AdjustParticipantCount(ctx context.Context, id string, delta int) error
}

type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Registration, error)
	Update(ctx context.Context, reg *models.Registration) error
	Delete(ctx context.Context, id string) error
}
