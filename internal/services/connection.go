package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository"

	"github.com/google/uuid"
)

const maxConnectMessageLength = 200

// ConnectionService runs the connect request lifecycle: pending, then accepted or rejected for good
type ConnectionService struct {
	conns    ConnectionStore
	users    UserStore
	cards    CardStore
	events   EventStore
	notifier Notifier
}

// NewConnectionService creates a new connection service
func NewConnectionService(conns ConnectionStore, users UserStore, cards CardStore, events EventStore, notifier Notifier) *ConnectionService {
	return &ConnectionService{
		conns:    conns,
		users:    users,
		cards:    cards,
		events:   events,
		notifier: notifier,
	}
}

// ConnectInput is a request to connect with another user
type ConnectInput struct {
	To      string
	EventID string
	Message string
}

// SendConnect creates a pending request from one user to another.
// Only one request may ever exist per ordered pair, whatever its status.
func (s *ConnectionService) SendConnect(ctx context.Context, fromUserID string, in ConnectInput) (*models.ConnectionRequest, error) {
	to := strings.TrimSpace(in.To)
	if to == "" {
		return nil, apperr.Invalid("to is required")
	}
	if to == fromUserID {
		return nil, apperr.Invalid("You cannot connect with yourself")
	}

	message := strings.TrimSpace(in.Message)
	if len([]rune(message)) > maxConnectMessageLength {
		return nil, apperr.Invalid("message cannot exceed %d characters", maxConnectMessageLength)
	}

	sender, err := s.users.GetByID(ctx, fromUserID)
	if err != nil {
		return nil, storeErr(err, "User not found", "failed to load user")
	}
	if _, err := s.users.GetByID(ctx, to); err != nil {
		return nil, storeErr(err, "User not found", "failed to load target user")
	}

	var eventID *string
	if in.EventID != "" {
		if _, err := s.events.GetByID(ctx, in.EventID); err != nil {
			return nil, storeErr(err, "Event not found", "failed to load event")
		}
		id := in.EventID
		eventID = &id
	}

	existing, err := s.conns.GetByPair(ctx, fromUserID, to)
	switch {
	case err == nil:
		return nil, existingRequestErr(existing)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Internal("failed to check existing request", err)
	}

	req := &models.ConnectionRequest{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   to,
		EventID:    eventID,
		Message:    message,
		Status:     models.ConnectionPending,
		CreatedAt:  time.Now(),
	}

	if err := s.conns.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if existing, getErr := s.conns.GetByPair(ctx, fromUserID, to); getErr == nil {
				return nil, existingRequestErr(existing)
			}
			return nil, apperr.Conflict("Connection request already exists")
		}
		return nil, apperr.Internal("failed to create connection request", err)
	}

	s.notifier.Notify(ctx, to, Notification{
		Type:  NotifyConnectRequest,
		Title: "New connect request",
		Body:  sender.Name + " wants to team up with you",
		Data:  map[string]string{"requestId": req.ID, "from": fromUserID},
	})

	return req, nil
}

func existingRequestErr(req *models.ConnectionRequest) error {
	if req.Status == models.ConnectionPending {
		return apperr.Conflict("Connection request already pending")
	}
	return apperr.Conflict("Connection request previously %s", req.Status)
}

// Respond accepts or rejects a pending request. Only the target may respond, and only once.
func (s *ConnectionService) Respond(ctx context.Context, requestID, responderID, decision string) (*models.ConnectionRequest, error) {
	if decision != models.ConnectionAccepted && decision != models.ConnectionRejected {
		return nil, apperr.Invalid("status must be accepted or rejected")
	}

	req, err := s.conns.GetByID(ctx, requestID)
	if err != nil {
		return nil, storeErr(err, "Connection request not found", "failed to load connection request")
	}

	if req.ToUserID != responderID {
		return nil, apperr.Forbidden("Not authorized to respond to this request")
	}

	if req.Status != models.ConnectionPending {
		return nil, apperr.Conflict("Request already %s", req.Status)
	}

	now := time.Now()
	ok, err := s.conns.Resolve(ctx, requestID, decision, now)
	if err != nil {
		return nil, apperr.Internal("failed to update connection request", err)
	}
	if !ok {
		if current, err := s.conns.GetByID(ctx, requestID); err == nil {
			return nil, apperr.Conflict("Request already %s", current.Status)
		}
		return nil, apperr.Conflict("Request already responded to")
	}

	req.Status = decision
	req.RespondedAt = &now

	responder := "Your teammate"
	if u, err := s.users.GetByID(ctx, responderID); err == nil {
		responder = u.Name
	}
	s.notifier.Notify(ctx, req.FromUserID, Notification{
		Type:  NotifyConnectResponse,
		Title: "Connect request " + decision,
		Body:  responder + " " + decision + " your connect request",
		Data:  map[string]string{"requestId": req.ID, "status": decision},
	})

	return req, nil
}

// UserSummary is the public view of another user
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RequestView is a request annotated from the viewer's side
type RequestView struct {
	*models.ConnectionRequest
	Direction string      `json:"direction"`
	OtherUser UserSummary `json:"otherUser"`
}

// ListRequests returns the requests the user sent and received, newest first
func (s *ConnectionService) ListRequests(ctx context.Context, userID string) ([]RequestView, error) {
	reqs, err := s.conns.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list connection requests", err)
	}

	names := newNameLookup(s.users)
	views := make([]RequestView, 0, len(reqs))
	for _, r := range reqs {
		direction, other := "sent", r.ToUserID
		if r.ToUserID == userID {
			direction, other = "received", r.FromUserID
		}
		views = append(views, RequestView{
			ConnectionRequest: r,
			Direction:         direction,
			OtherUser:         UserSummary{ID: other, Name: names.name(ctx, other)},
		})
	}
	return views, nil
}

// Hackmate is a user the viewer is connected with
type Hackmate struct {
	UserSummary
	ConnectionID string       `json:"connectionId"`
	ConnectedAt  *time.Time   `json:"connectedAt,omitempty"`
	Card         *models.Card `json:"card,omitempty"`
}

// Hackmates lists users with an accepted request in either direction
func (s *ConnectionService) Hackmates(ctx context.Context, userID string) ([]Hackmate, error) {
	reqs, err := s.conns.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list connection requests", err)
	}

	var (
		mates []Hackmate
		ids   []string
	)
	seen := map[string]bool{}
	names := newNameLookup(s.users)
	for _, r := range reqs {
		if r.Status != models.ConnectionAccepted {
			continue
		}
		other := r.ToUserID
		if other == userID {
			other = r.FromUserID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		ids = append(ids, other)
		mates = append(mates, Hackmate{
			UserSummary:  UserSummary{ID: other, Name: names.name(ctx, other)},
			ConnectionID: r.ID,
			ConnectedAt:  r.RespondedAt,
		})
	}

	if len(ids) == 0 {
		return []Hackmate{}, nil
	}

	cards, err := s.cards.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to load hackmate cards", err)
	}
	byUser := make(map[string]*models.Card, len(cards))
	for _, c := range cards {
		byUser[c.UserID] = c
	}
	for i := range mates {
		mates[i].Card = byUser[mates[i].ID]
	}

	return mates, nil
}

// nameLookup memoizes user names for the duration of one call
type nameLookup struct {
	users UserStore
	names map[string]string
}

func newNameLookup(users UserStore) *nameLookup {
	return &nameLookup{users: users, names: map[string]string{}}
}

func (l *nameLookup) name(ctx context.Context, userID string) string {
	if n, ok := l.names[userID]; ok {
		return n
	}
	n := ""
	if u, err := l.users.GetByID(ctx, userID); err == nil {
		n = u.Name
	}
	l.names[userID] = n
	return n
}
