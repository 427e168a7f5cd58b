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

func TestGetOrCreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("sad path - blocked until a request is accepted", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")

		_, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		requireCode(t, err, apperr.CodePermissionDenied)

		req, err := f.conns.SendConnect(ctx, alice, services.ConnectInput{To: bob})
		require.NoError(t, err)
		_, err = f.chat.GetOrCreateConversation(ctx, alice, bob)
		requireCode(t, err, apperr.CodePermissionDenied)

		_, err = f.conns.Respond(ctx, req.ID, bob, models.ConnectionRejected)
		require.NoError(t, err)
		_, err = f.chat.GetOrCreateConversation(ctx, bob, alice)
		requireCode(t, err, apperr.CodePermissionDenied)
	})

	t.Run("happy path - one conversation per unordered pair", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.connected(t, bob, alice)

		first, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		require.NoError(t, err)
		second, err := f.chat.GetOrCreateConversation(ctx, bob, alice)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.UserAID < first.UserBID)
		assert.True(t, first.HasParticipant(alice))
		assert.True(t, first.HasParticipant(bob))
		assert.NotEmpty(t, first.ConnectionID)
	})

	t.Run("sad path - bad target", func(t *testing.T) {
		f := newFixture(t, nil)
		alice := f.user(t, "alice")

		_, err := f.chat.GetOrCreateConversation(ctx, alice, "")
		requireCode(t, err, apperr.CodeInvalidArgument)
		_, err = f.chat.GetOrCreateConversation(ctx, alice, alice)
		requireCode(t, err, apperr.CodeInvalidArgument)
		_, err = f.chat.GetOrCreateConversation(ctx, alice, "ghost")
		requireCode(t, err, apperr.CodeNotFound)
	})
}

func TestMessagesAndUnread(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - send, count, mark read", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.connected(t, alice, bob)
		conv, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		require.NoError(t, err)

		msg, err := f.chat.SendMessage(ctx, conv.ID, alice, "  hi  ")
		require.NoError(t, err)
		assert.Equal(t, "hi", msg.Text)

		unread, err := f.chat.UnreadCount(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, 1, unread.Total)
		assert.Equal(t, 1, unread.ByUser[alice])
		assert.Equal(t, 1, unread.ByConversation[conv.ID])

		mine, err := f.chat.UnreadCount(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, mine.Total)

		n, err := f.chat.MarkRead(ctx, conv.ID, bob)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = f.chat.MarkRead(ctx, conv.ID, bob)
		require.NoError(t, err)
		assert.Zero(t, n)

		unread, err = f.chat.UnreadCount(ctx, bob)
		require.NoError(t, err)
		assert.Zero(t, unread.Total)
	})

	t.Run("get messages marks read unless asked not to", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.connected(t, alice, bob)
		conv, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		require.NoError(t, err)

		for _, text := range []string{"one", "two", "three"} {
			_, err := f.chat.SendMessage(ctx, conv.ID, alice, text)
			require.NoError(t, err)
		}

		page, total, err := f.chat.GetMessages(ctx, conv.ID, bob, 2, 1, false)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, page, 2)
		assert.Equal(t, "two", page[0].Text)
		assert.Equal(t, "three", page[1].Text)

		unread, err := f.chat.UnreadCount(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, 3, unread.Total)

		all, _, err := f.chat.GetMessages(ctx, conv.ID, bob, 0, 0, true)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.NotNil(t, all[0].ReadAt)

		unread, err = f.chat.UnreadCount(ctx, bob)
		require.NoError(t, err)
		assert.Zero(t, unread.Total)
	})

	t.Run("sad path - message rules", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
		f.connected(t, alice, bob)
		conv, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		require.NoError(t, err)

		_, err = f.chat.SendMessage(ctx, conv.ID, alice, "   ")
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = f.chat.SendMessage(ctx, "", alice, "hi")
		requireCode(t, err, apperr.CodeInvalidArgument)

		_, err = f.chat.SendMessage(ctx, "missing", alice, "hi")
		requireCode(t, err, apperr.CodeNotFound)

		_, err = f.chat.SendMessage(ctx, conv.ID, carol, "hi")
		requireCode(t, err, apperr.CodePermissionDenied)

		_, _, err = f.chat.GetMessages(ctx, conv.ID, carol, 0, 0, true)
		requireCode(t, err, apperr.CodePermissionDenied)

		_, err = f.chat.MarkRead(ctx, conv.ID, carol)
		requireCode(t, err, apperr.CodePermissionDenied)

		long, err := f.chat.SendMessage(ctx, conv.ID, alice, strings.Repeat("ab", 20))
		require.NoError(t, err)
		assert.Len(t, long.Text, 20)

		cut, err := f.chat.SendMessage(ctx, conv.ID, alice, "héllo wörld this is a long message")
		require.NoError(t, err)
		assert.Equal(t, "héllo wörld this is", cut.Text)
	})

	t.Run("conversation list carries the other user and unread count", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
		f.connected(t, alice, bob)
		f.connected(t, carol, alice)

		withBob, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		require.NoError(t, err)
		withCarol, err := f.chat.GetOrCreateConversation(ctx, alice, carol)
		require.NoError(t, err)

		_, err = f.chat.SendMessage(ctx, withBob.ID, bob, "ping")
		require.NoError(t, err)

		views, err := f.chat.ListConversations(ctx, alice)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, withBob.ID, views[0].ID)
		assert.Equal(t, "bob", views[0].OtherUser.Name)
		assert.Equal(t, 1, views[0].UnreadCount)
		assert.Equal(t, withCarol.ID, views[1].ID)
		assert.Zero(t, views[1].UnreadCount)
	})

	t.Run("new message notifies the other participant", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mocks.NewMockNotifier(ctrl)
		f := newFixture(t, notifier)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")

		notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), notificationOfType(services.NotifyConnectRequest))
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), notificationOfType(services.NotifyConnectResponse))
		notifier.EXPECT().Notify(gomock.Any(), bob, notificationOfType(services.NotifyNewMessage))

		f.connected(t, alice, bob)
		conv, err := f.chat.GetOrCreateConversation(ctx, alice, bob)
		require.NoError(t, err)
		_, err = f.chat.SendMessage(ctx, conv.ID, alice, "hello")
		require.NoError(t, err)
	})
}
