package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eduhacktech-backend/internal/push"
	"eduhacktech-backend/internal/queue"

	"github.com/rs/zerolog/log"
)

// Notification types
const (
	NotifyConnectRequest  = "connect_request"
	NotifyConnectResponse = "connect_response"
	NotifyNewMessage      = "new_message"
	NotifyProblemReviewed = "problem_reviewed"
)

// PushTaskType is the queue task that delivers a push notification
const PushTaskType = "notify:push"

// Notification is a user-facing event delivered in realtime or by push
type Notification struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

//go:generate mockgen -destination=mocks/notifier_mock.go -package=mocks eduhacktech-backend/internal/services Notifier

// Notifier delivers notifications. Delivery is best effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification)
}

// Pusher sends a push message to a device
type Pusher interface {
	Send(ctx context.Context, deviceToken string, msg push.Message) error
}

type pushTaskPayload struct {
	UserID       string       `json:"userId"`
	Notification Notification `json:"notification"`
}

// Dispatcher sends to the websocket hub when the user is online, otherwise pushes to the device.
// With a queue client the push is handed to a background worker.
type Dispatcher struct {
	hub    *WSHub
	queue  queue.Client
	users  UserStore
	pusher Pusher
}

// NewDispatcher creates a dispatcher. queue and pusher may be nil.
func NewDispatcher(hub *WSHub, q queue.Client, users UserStore, pusher Pusher) *Dispatcher {
	return &Dispatcher{hub: hub, queue: q, users: users, pusher: pusher}
}

// Notify delivers n to userID
func (d *Dispatcher) Notify(ctx context.Context, userID string, n Notification) {
	if d.hub != nil && d.hub.IsOnline(userID) {
		msg := WSMessage{Type: n.Type, Message: n.Body, Data: n.Data}
		err := d.hub.SendToUser(userID, msg)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("user_id", userID).Msg("Realtime delivery failed, falling back to push")
	}

	if d.pusher == nil {
		return
	}

	if d.queue == nil {
		if err := d.deliver(ctx, userID, n); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", n.Type).Msg("Failed to push notification")
		}
		return
	}

	payload, err := json.Marshal(pushTaskPayload{UserID: userID, Notification: n})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode push task")
		return
	}

	if _, err := d.queue.Enqueue(ctx, queue.Task{Type: PushTaskType, Payload: payload}, queue.EnqueueOption{
		Queue:    "notifications",
		MaxRetry: 3,
		Timeout:  10 * time.Second,
	}); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue push notification")
	}
}

// HandlePushTask is the queue handler for PushTaskType
func (d *Dispatcher) HandlePushTask(ctx context.Context, t queue.Task) error {
	var p pushTaskPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		// malformed payload, retrying cannot help
		log.Error().Err(err).Msg("Dropping malformed push task")
		return nil
	}
	return d.deliver(ctx, p.UserID, p.Notification)
}

// RegisterTasks binds the dispatcher's handlers to a worker server
func (d *Dispatcher) RegisterTasks(srv queue.Server) {
	srv.Register(PushTaskType, d.HandlePushTask)
}

func (d *Dispatcher) deliver(ctx context.Context, userID string, n Notification) error {
	if d.pusher == nil {
		return nil
	}

	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load push recipient: %w", err)
	}
	if user.PushToken == nil {
		return nil
	}

	return d.pusher.Send(ctx, *user.PushToken, push.Message{Title: n.Title, Body: n.Body, Data: n.Data})
}
