// Package memory is an in-process implementation of the storage contracts.
// It enforces the same unique keys as the PostgreSQL schema and is used by tests
// and by the "memory" database driver for local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository"
)

// Store holds every collection behind a single lock
type Store struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	cards         map[string]*models.Card // keyed by user id
	connections   []*models.ConnectionRequest
	conversations []*models.Conversation
	messages      []*models.Message
	events        []*models.Event
	registrations []*models.Registration
}

// New creates an empty store
func New() *Store {
	return &Store{
		users: make(map[string]*models.User),
		cards: make(map[string]*models.Card),
	}
}

// Users returns the user collection
func (s *Store) Users() *Users { return &Users{s} }

// Cards returns the team-finder card collection
func (s *Store) Cards() *Cards { return &Cards{s} }

// Connections returns the connect request collection
func (s *Store) Connections() *Connections { return &Connections{s} }

// Conversations returns the conversation collection
func (s *Store) Conversations() *Conversations { return &Conversations{s} }

// Messages returns the message collection
func (s *Store) Messages() *Messages { return &Messages{s} }

// Events returns the event collection
func (s *Store) Events() *Events { return &Events{s} }

// Registrations returns the registration collection
func (s *Store) Registrations() *Registrations { return &Registrations{s} }

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

func duplicate(key string) error {
	return fmt.Errorf("%w: %s", repository.ErrDuplicate, key)
}

// Users

// Users stores accounts, unique by id and email
type Users struct{ s *Store }

// Create inserts a user
func (u *Users) Create(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[user.ID]; ok {
		return duplicate("users_pkey")
	}
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return duplicate("users_email_key")
		}
	}
	cp := *user
	u.s.users[user.ID] = &cp
	return nil
}

// GetByID returns a copy of the user
func (u *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	cp := *user
	return &cp, nil
}

// UpdatePushToken sets or clears the device token
func (u *Users) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	user.PushToken = pushToken
	return nil
}

// UpdateRole changes the user role
func (u *Users) UpdateRole(_ context.Context, userID, role string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	user.Role = role
	return nil
}

// Ping reports the store health
func (u *Users) Ping(ctx context.Context) error { return u.s.Ping(ctx) }

// Cards

// Cards stores one card per user
type Cards struct{ s *Store }

func cloneCard(c *models.Card) *models.Card {
	cp := *c
	cp.Availability = append([]string(nil), c.Availability...)
	cp.Interests = append([]string(nil), c.Interests...)
	return &cp
}

// Upsert creates or replaces the user's card, keeping its id and creation time
func (c *Cards) Upsert(_ context.Context, card *models.Card) (*models.Card, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	next := cloneCard(card)
	if existing, ok := c.s.cards[card.UserID]; ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
	}
	c.s.cards[card.UserID] = next
	return cloneCard(next), nil
}

// GetByUserID returns the user's card
func (c *Cards) GetByUserID(_ context.Context, userID string) (*models.Card, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	card, ok := c.s.cards[userID]
	if !ok {
		return nil, notFound("card of user", userID)
	}
	return cloneCard(card), nil
}

// UpdateActive sets the activity status and last-active time
func (c *Cards) UpdateActive(_ context.Context, userID, active string, at time.Time) (*models.Card, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	card, ok := c.s.cards[userID]
	if !ok {
		return nil, notFound("card of user", userID)
	}
	card.Active = active
	card.LastActive = at
	card.UpdatedAt = at
	return cloneCard(card), nil
}

// ListActive returns actively looking cards, most recently active first
func (c *Cards) ListActive(_ context.Context, excludeUserID string) ([]*models.Card, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var cards []*models.Card
	for _, card := range c.s.cards {
		if card.Active == models.ActivityActivelyLooking && card.UserID != excludeUserID {
			cards = append(cards, cloneCard(card))
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].LastActive.Equal(cards[j].LastActive) {
			return cards[i].LastActive.After(cards[j].LastActive)
		}
		return cards[i].UserID < cards[j].UserID
	})
	return cards, nil
}

// ListByUserIDs returns the cards of the given users that exist
func (c *Cards) ListByUserIDs(_ context.Context, userIDs []string) ([]*models.Card, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var cards []*models.Card
	for _, id := range userIDs {
		if card, ok := c.s.cards[id]; ok {
			cards = append(cards, cloneCard(card))
		}
	}
	return cards, nil
}

// CountActive counts actively looking cards
func (c *Cards) CountActive(context.Context) (int64, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var total int64
	for _, card := range c.s.cards {
		if card.Active == models.ActivityActivelyLooking {
			total++
		}
	}
	return total, nil
}

// Connections

// Connections stores connect requests, unique per ordered pair
type Connections struct{ s *Store }

func cloneConnection(r *models.ConnectionRequest) *models.ConnectionRequest {
	cp := *r
	return &cp
}

// Create inserts a request
func (c *Connections) Create(_ context.Context, req *models.ConnectionRequest) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for _, existing := range c.s.connections {
		if existing.FromUserID == req.FromUserID && existing.ToUserID == req.ToUserID {
			return duplicate("connection_requests_from_user_id_to_user_id_key")
		}
	}
	c.s.connections = append(c.s.connections, cloneConnection(req))
	return nil
}

// GetByID returns a request by id
func (c *Connections) GetByID(_ context.Context, id string) (*models.ConnectionRequest, error) {
	return c.find(func(r *models.ConnectionRequest) bool { return r.ID == id }, id)
}

// GetByPair returns the request sent from one user to another
func (c *Connections) GetByPair(_ context.Context, fromUserID, toUserID string) (*models.ConnectionRequest, error) {
	return c.find(func(r *models.ConnectionRequest) bool {
		return r.FromUserID == fromUserID && r.ToUserID == toUserID
	}, fromUserID+"->"+toUserID)
}

// FindAccepted returns an accepted request between two users in either direction
func (c *Connections) FindAccepted(_ context.Context, userA, userB string) (*models.ConnectionRequest, error) {
	return c.find(func(r *models.ConnectionRequest) bool {
		if r.Status != models.ConnectionAccepted {
			return false
		}
		return (r.FromUserID == userA && r.ToUserID == userB) || (r.FromUserID == userB && r.ToUserID == userA)
	}, userA+"<->"+userB)
}

// ListForUser returns sent and received requests, newest first
func (c *Connections) ListForUser(_ context.Context, userID string) ([]*models.ConnectionRequest, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var reqs []*models.ConnectionRequest
	for i := len(c.s.connections) - 1; i >= 0; i-- {
		r := c.s.connections[i]
		if r.FromUserID == userID || r.ToUserID == userID {
			reqs = append(reqs, cloneConnection(r))
		}
	}
	return reqs, nil
}

// Resolve moves a pending request to status. It reports false when the request was not pending.
func (c *Connections) Resolve(_ context.Context, id, status string, at time.Time) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for _, r := range c.s.connections {
		if r.ID != id {
			continue
		}
		if r.Status != models.ConnectionPending {
			return false, nil
		}
		r.Status = status
		respondedAt := at
		r.RespondedAt = &respondedAt
		return true, nil
	}
	return false, nil
}

func (c *Connections) find(match func(*models.ConnectionRequest) bool, key string) (*models.ConnectionRequest, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	for _, r := range c.s.connections {
		if match(r) {
			return cloneConnection(r), nil
		}
	}
	return nil, notFound("connection request", key)
}

// Conversations

// Conversations stores conversations, unique per sorted user pair
type Conversations struct{ s *Store }

// Create inserts a conversation
func (c *Conversations) Create(_ context.Context, conv *models.Conversation) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for _, existing := range c.s.conversations {
		if existing.UserAID == conv.UserAID && existing.UserBID == conv.UserBID {
			return duplicate("conversations_user_a_id_user_b_id_key")
		}
	}
	cp := *conv
	c.s.conversations = append(c.s.conversations, &cp)
	return nil
}

// GetByID returns a conversation by id
func (c *Conversations) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	return c.find(func(conv *models.Conversation) bool { return conv.ID == id }, id)
}

// GetByPair returns the conversation of a sorted user pair
func (c *Conversations) GetByPair(_ context.Context, userAID, userBID string) (*models.Conversation, error) {
	return c.find(func(conv *models.Conversation) bool {
		return conv.UserAID == userAID && conv.UserBID == userBID
	}, userAID+"<->"+userBID)
}

// ListForUser returns the user's conversations, latest message first
func (c *Conversations) ListForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var convs []*models.Conversation
	for _, conv := range c.s.conversations {
		if conv.HasParticipant(userID) {
			cp := *conv
			convs = append(convs, &cp)
		}
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})
	return convs, nil
}

// TouchLastMessage records the time of the latest message
func (c *Conversations) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for _, conv := range c.s.conversations {
		if conv.ID == id {
			conv.LastMessageAt = at
			return nil
		}
	}
	return notFound("conversation", id)
}

func (c *Conversations) find(match func(*models.Conversation) bool, key string) (*models.Conversation, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	for _, conv := range c.s.conversations {
		if match(conv) {
			cp := *conv
			return &cp, nil
		}
	}
	return nil, notFound("conversation", key)
}

// Messages

// Messages stores chat messages in insertion order
type Messages struct{ s *Store }

// Create appends a message
func (m *Messages) Create(_ context.Context, msg *models.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	cp := *msg
	m.s.messages = append(m.s.messages, &cp)
	return nil
}

// ListByConversation returns one page of messages and the total count
func (m *Messages) ListByConversation(_ context.Context, conversationID string, limit, offset int) ([]*models.Message, int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var all []*models.Message
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID {
			cp := *msg
			all = append(all, &cp)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// MarkRead marks unread messages from the other participant as read
func (m *Messages) MarkRead(_ context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var n int64
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && msg.ReadAt == nil {
			readAt := at
			msg.ReadAt = &readAt
			n++
		}
	}
	return n, nil
}

// UnreadCounts groups the user's unread messages by conversation
func (m *Messages) UnreadCounts(_ context.Context, userID string) ([]models.UnreadCount, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var counts []models.UnreadCount
	for _, conv := range m.s.conversations {
		if !conv.HasParticipant(userID) {
			continue
		}
		n := 0
		for _, msg := range m.s.messages {
			if msg.ConversationID == conv.ID && msg.SenderID != userID && msg.ReadAt == nil {
				n++
			}
		}
		if n > 0 {
			counts = append(counts, models.UnreadCount{
				ConversationID: conv.ID,
				OtherUserID:    conv.Other(userID),
				Count:          n,
			})
		}
	}
	return counts, nil
}

// Events

// Events stores hackathon events
type Events struct{ s *Store }

// Create inserts an event
func (e *Events) Create(_ context.Context, ev *models.Event) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	for _, existing := range e.s.events {
		if existing.ID == ev.ID {
			return duplicate("events_pkey")
		}
	}
	cp := *ev
	e.s.events = append(e.s.events, &cp)
	return nil
}

// GetByID returns an event by id
func (e *Events) GetByID(_ context.Context, id string) (*models.Event, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	for _, ev := range e.s.events {
		if ev.ID == id {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, notFound("event", id)
}

// List returns every event by start date
func (e *Events) List(context.Context) ([]*models.Event, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	events := make([]*models.Event, 0, len(e.s.events))
	for _, ev := range e.s.events {
		cp := *ev
		events = append(events, &cp)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
	return events, nil
}

// AdjustParticipantCount adds delta to the participant counter, floored at 0
func (e *Events) AdjustParticipantCount(_ context.Context, id string, delta int) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	for _, ev := range e.s.events {
		if ev.ID == id {
			ev.ParticipantCount += delta
			if ev.ParticipantCount < 0 {
				ev.ParticipantCount = 0
			}
			return nil
		}
	}
	return notFound("event", id)
}

// Registrations

// Registrations stores registrations, unique per event and user
type Registrations struct{ s *Store }

func cloneRegistration(r *models.Registration) *models.Registration {
	cp := *r
	cp.TeamMembers = append([]models.TeamMember(nil), r.TeamMembers...)
	if r.ProblemStatement != nil {
		ps := *r.ProblemStatement
		cp.ProblemStatement = &ps
	}
	return &cp
}

// Create inserts a registration
func (r *Registrations) Create(_ context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.registrations {
		if existing.EventID == reg.EventID && existing.UserID == reg.UserID {
			return duplicate("registrations_event_id_user_id_key")
		}
	}
	r.s.registrations = append(r.s.registrations, cloneRegistration(reg))
	return nil
}

// GetByID returns a registration by id
func (r *Registrations) GetByID(_ context.Context, id string) (*models.Registration, error) {
	return r.find(func(reg *models.Registration) bool { return reg.ID == id }, id)
}

// GetByEventAndUser returns the user's registration for an event
func (r *Registrations) GetByEventAndUser(_ context.Context, eventID, userID string) (*models.Registration, error) {
	return r.find(func(reg *models.Registration) bool {
		return reg.EventID == eventID && reg.UserID == userID
	}, eventID+"/"+userID)
}

// ListByUser returns the user's registrations, newest first
func (r *Registrations) ListByUser(_ context.Context, userID string) ([]*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var regs []*models.Registration
	for i := len(r.s.registrations) - 1; i >= 0; i-- {
		if reg := r.s.registrations[i]; reg.UserID == userID {
			regs = append(regs, cloneRegistration(reg))
		}
	}
	return regs, nil
}

// ListByEvent returns the event's registrations
func (r *Registrations) ListByEvent(_ context.Context, eventID string) ([]*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var regs []*models.Registration
	for _, reg := range r.s.registrations {
		if reg.EventID == eventID {
			regs = append(regs, cloneRegistration(reg))
		}
	}
	return regs, nil
}

// Update saves the status, payment and problem statement fields
func (r *Registrations) Update(_ context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, existing := range r.s.registrations {
		if existing.ID == reg.ID {
			next := cloneRegistration(existing)
			next.Status = reg.Status
			next.PaymentStatus = reg.PaymentStatus
			next.PaymentAmount = reg.PaymentAmount
			next.PaymentDate = reg.PaymentDate
			next.UpdatedAt = reg.UpdatedAt
			next.ProblemStatement = nil
			if reg.ProblemStatement != nil {
				ps := *reg.ProblemStatement
				next.ProblemStatement = &ps
			}
			r.s.registrations[i] = next
			return nil
		}
	}
	return notFound("registration", reg.ID)
}

// Delete removes a registration
func (r *Registrations) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, reg := range r.s.registrations {
		if reg.ID == id {
			r.s.registrations = append(r.s.registrations[:i], r.s.registrations[i+1:]...)
			return nil
		}
	}
	return notFound("registration", id)
}

func (r *Registrations) find(match func(*models.Registration) bool, key string) (*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, reg := range r.s.registrations {
		if match(reg) {
			return cloneRegistration(reg), nil
		}
	}
	return nil, notFound("registration", key)
}
