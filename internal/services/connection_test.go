package services_test

import (
	"context"
	"strings"
	"testing"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/services"
	"eduhacktech-backend/internal/services/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationType string

func (m notificationType) Matches(x interface{}) bool {
	n, ok := x.(services.Notification)
	return ok && n.Type == string(m)
}

func (m notificationType) String() string { return "notification of type " + string(m) }

func notificationOfType(typ string) gomock.Matcher { return notificationType(typ) }

func TestSendConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - pending request and notification", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mocks.NewMockNotifier(ctrl)
		f := newFixture(t, notifier)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")

		notifier.EXPECT().Notify(gomock.Any(), bob, notificationOfType(services.NotifyConnectRequest)).Times(1)

		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob, Message: "  let's build  "})
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionPending, req.Status)
		assert.Equal(t, alice, req.FromUserID)
		assert.Equal(t, bob, req.ToUserID)
		assert.Equal(t, "let's build", req.Message)
		assert.Nil(t, req.EventID)
	})

	t.Run("sad path - invalid input", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")

		_, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{})
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = f.conns.SendConnect(ctx, alice, services.ConnectInput{To: alice})
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob, Message: strings.Repeat("x", 201)})
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = f.conns.SendConnect(ctx, alice, services.ConnectInput{To: "ghost"})
		requireCode(t, err, apperr.CodeNotFound)

		_, err = f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob, EventID: "missing"})
		requireCode(t, err, apperr.CodeNotFound)
	})

	t.Run("event reference is kept", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		ev := createEvent(t, f, 0, 1, 3)

		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob, EventID: ev.ID})
		require.NoError(t, err)
		require.NotNil(t, req.EventID)
		assert.Equal(t, ev.ID, *req.EventID)
	})

	t.Run("sad path - one request per ordered pair whatever its status", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")

		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		require.NoError(t, err)

		_, err = f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		requireCode(t, err, apperr.CodeConflict)
		assert.Contains(t, err.Error(), "already pending")

		_, err = f.conns.Respond(ctx, req.ID, bob, models.ConnectionRejected)
		require.NoError(t, err)

		_, err = f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		requireCode(t, err, apperr.CodeConflict)
		assert.Contains(t, err.Error(), "previously rejected")

		// the reverse direction is a separate pair
		_, err = f.conns.SendConnect(ctx, bob, services.ConnectInput{To: alice})
		assert.NoError(t, err)
	})
}

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - accept notifies the requester", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mocks.NewMockNotifier(ctrl)
		f := newFixture(t, notifier)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")

		gomock.InOrder(
			notifier.EXPECT().Notify(gomock.Any(), bob, notificationOfType(services.NotifyConnectRequest)),
			notifier.EXPECT().Notify(gomock.Any(), alice, notificationOfType(services.NotifyConnectResponse)),
		)

		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		require.NoError(t, err)

		got, err := f.conns.Respond(ctx, req.ID, bob, models.ConnectionAccepted)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionAccepted, got.Status)
		assert.NotNil(t, got.RespondedAt)
	})

	t.Run("sad path - only the target responds", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		require.NoError(t, err)

		_, err = f.conns.Respond(ctx, req.ID, alice, models.ConnectionAccepted)
		requireCode(t, err, apperr.CodePermissionDenied)

		_, err = f.conns.Respond(ctx, req.ID, carol, models.ConnectionAccepted)
		requireCode(t, err, apperr.CodePermissionDenied)
	})

	t.Run("sad path - responds once", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		require.NoError(t, err)

		_, err = f.conns.Respond(ctx, req.ID, bob, models.ConnectionAccepted)
		require.NoError(t, err)

		_, err = f.conns.Respond(ctx, req.ID, bob, models.ConnectionRejected)
		requireCode(t, err, apperr.CodeConflict)
		assert.Contains(t, err.Error(), "Request already accepted")
	})

	t.Run("sad path - bad decision or unknown request", func(t *testing.T) {
		f := newFixture(t, nil)
		bob := f.user(t, "bob")

		_, err := f.conns.Respond(ctx, "nope", bob, "maybe")
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = f.conns.Respond(ctx, "nope", bob, models.ConnectionAccepted)
		requireCode(t, err, apperr.CodeNotFound)
	})
}

func TestListRequestsAndHackmates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	f.card(t, bob, backendWeb())

	f.connected(t, alice, bob)
	_, err := f.conns.SendConnect(ctx, carol, services.ConnectInput{To: alice})
	require.NoError(t, err)

	views, err := f.conns.ListRequests(ctx, alice)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "received", views[0].Direction)
	assert.Equal(t, "carol", views[0].OtherUser.Name)
	assert.Equal(t, "sent", views[1].Direction)
	assert.Equal(t, bob, views[1].OtherUser.ID)

	mates, err := f.conns.Hackmates(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mates, 1)
	assert.Equal(t, bob, mates[0].ID)
	assert.Equal(t, "bob", mates[0].Name)
	require.NotNil(t, mates[0].Card)
	assert.Equal(t, services.RoleBackend, mates[0].Card.Role)

	mates, err = f.conns.Hackmates(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mates, 1)
	assert.Equal(t, alice, mates[0].ID)
	assert.Nil(t, mates[0].Card)

	mates, err = f.conns.Hackmates(ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, mates)
}
