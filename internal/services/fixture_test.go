package services_test

import (
	"context"
	"testing"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/cache"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/repository/memory"
	"eduhacktech-backend/internal/services"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fixture struct {
	store  *memory.Store
	users  *services.UserService
	finder *services.TeamFinderService
	conns  *services.ConnectionService
	chat   *services.ChatService
	events *services.EventService
}

// quietNotifier drops every notification
func quietNotifier(store *memory.Store) services.Notifier {
	return services.NewDispatcher(nil, nil, store.Users(), nil)
}

func newFixture(t *testing.T, notifier services.Notifier) *fixture {
	t.Helper()
	store := memory.New()
	if notifier == nil {
		notifier = quietNotifier(store)
	}
	return &fixture{
		store: store,
		users: services.NewUserService(store.Users(), testSecret, "admin@example.com"),
		finder: services.NewTeamFinderService(
			store.Cards(), store.Connections(), store.Users(), store.Events(), store.Registrations(),
			cache.Noop{}, time.Minute,
		),
		conns:  services.NewConnectionService(store.Connections(), store.Users(), store.Cards(), store.Events(), notifier),
		chat:   services.NewChatService(store.Conversations(), store.Messages(), store.Connections(), store.Users(), notifier, 20),
		events: services.NewEventService(store.Events(), store.Registrations(), notifier),
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	u, _, err := f.users.CreateUser(context.Background(), name, name+"@example.com")
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) card(t *testing.T, userID string, in services.CardInput) *models.Card {
	t.Helper()
	c, err := f.finder.SaveCard(context.Background(), userID, in)
	require.NoError(t, err)
	return c
}

func (f *fixture) connected(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	req, err := f.conns.SendConnect(ctx, a, services.ConnectInput{To: b})
	require.NoError(t, err)
	_, err = f.conns.Respond(ctx, req.ID, b, models.ConnectionAccepted)
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperr.CodeOf(err), "unexpected error: %v", err)
}
