package services_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"eduhacktech-backend/internal/apperr"
	"eduhacktech-backend/internal/cache"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frontendWeb() services.CardInput {
	return services.CardInput{Role: services.RoleFrontend, Level: services.LevelBeginner, Interests: []string{"Web"}}
}

func backendWeb() services.CardInput {
	return services.CardInput{Role: services.RoleBackend, Level: services.LevelAdvanced, Interests: []string{"Web"}}
}

func TestSaveCard(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects values outside the vocabularies", func(t *testing.T) {
		f := newFixture(t, nil)
		alice := f.user(t, "alice")

		bad := []services.CardInput{
			{Role: "Designer", Level: services.LevelBeginner},
			{Role: services.RoleFrontend, Level: "Expert"},
			{Role: services.RoleFrontend, Level: services.LevelBeginner, Interests: []string{"Gaming"}},
			{Role: services.RoleFrontend, Level: services.LevelBeginner, Availability: []string{"Mornings"}},
			{Role: services.RoleFrontend, SecondaryRole: "Chef", Level: services.LevelBeginner},
			{Role: services.RoleFrontend, Level: services.LevelBeginner, Bio: string(make([]rune, 141))},
		}
		for _, in := range bad {
			_, err := f.finder.SaveCard(ctx, alice, in)
			requireCode(t, err, apperr.CodeInvalidArgument)
		}
	})

	t.Run("one card per user and activity survives updates", func(t *testing.T) {
		f := newFixture(t, nil)
		alice := f.user(t, "alice")

		first := f.card(t, alice, frontendWeb())
		assert.Equal(t, models.ActivityActivelyLooking, first.Active)
		assert.Equal(t, "alice", first.Name)

		_, err := f.finder.UpdateActivity(ctx, alice, models.ActivityBusy)
		require.NoError(t, err)

		in := frontendWeb()
		in.Role = services.RoleFullStack
		in.SecondaryRole = services.RoleFullStack
		in.Interests = []string{"Web", "AI", "Web"}
		second := f.card(t, alice, in)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.ActivityBusy, second.Active)
		assert.Empty(t, second.SecondaryRole)
		assert.Equal(t, []string{"Web", "AI"}, second.Interests)
		assert.False(t, second.LastActive.Before(first.LastActive))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.finder.SaveCard(ctx, "ghost", frontendWeb())
		requireCode(t, err, apperr.CodeNotFound)
	})
}

func TestGetCardAndUpdateActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.user(t, "alice")

	_, err := f.finder.GetCard(ctx, alice)
	requireCode(t, err, apperr.CodeNotFound)

	_, err = f.finder.UpdateActivity(ctx, alice, models.ActivityBusy)
	requireCode(t, err, apperr.CodeNotFound)

	f.card(t, alice, frontendWeb())

	_, err = f.finder.UpdateActivity(ctx, alice, "sleeping")
	requireCode(t, err, apperr.CodeInvalidArgument)

	card, err := f.finder.UpdateActivity(ctx, alice, models.ActivityNotLooking)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityNotLooking, card.Active)

	got, err := f.finder.GetCard(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityNotLooking, got.Active)
}

func TestFindMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a card", func(t *testing.T) {
		f := newFixture(t, nil)
		alice := f.user(t, "alice")
		_, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{})
		requireCode(t, err, apperr.CodeNotFound)
	})

	t.Run("scores and excludes zero matches", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
		f.card(t, alice, frontendWeb())
		f.card(t, bob, backendWeb())
		f.card(t, carol, services.CardInput{Role: services.RoleFrontend, Level: services.LevelAdvanced, Interests: []string{"IoT"}})

		matches, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, bob, matches[0].UserID)
		assert.Equal(t, 70, matches[0].Score)
		assert.Nil(t, matches[0].ConnectStatus)
	})

	t.Run("not looking viewer sees nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.card(t, alice, frontendWeb())
		f.card(t, bob, backendWeb())
		_, err := f.finder.UpdateActivity(ctx, alice, models.ActivityNotLooking)
		require.NoError(t, err)

		matches, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("only actively looking candidates", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.card(t, alice, frontendWeb())
		f.card(t, bob, backendWeb())
		_, err := f.finder.UpdateActivity(ctx, bob, models.ActivityBusy)
		require.NoError(t, err)

		matches, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("filters", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob, dave := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "dave")
		f.card(t, alice, services.CardInput{
			Role: services.RoleFrontend, Level: services.LevelBeginner,
			Interests: []string{"Web", "AI"}, Availability: []string{"Weekends"},
		})
		f.card(t, bob, services.CardInput{
			Role: services.RoleBackend, Level: services.LevelAdvanced,
			Interests: []string{"Web"}, Availability: []string{"Weekends"}, Bio: "Go and Postgres",
		})
		f.card(t, dave, services.CardInput{
			Role: services.RoleUIUX, SecondaryRole: services.RoleMLAI, Level: services.LevelBeginner,
			Interests: []string{"AI"}, Availability: []string{"Evenings"},
		})

		byRole, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{Role: services.RoleMLAI})
		require.NoError(t, err)
		require.Len(t, byRole, 1)
		assert.Equal(t, dave, byRole[0].UserID)

		byQuery, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{Query: "postgres"})
		require.NoError(t, err)
		require.Len(t, byQuery, 1)
		assert.Equal(t, bob, byQuery[0].UserID)

		byName, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{Query: "DAV"})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, dave, byName[0].UserID)

		combined, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{
			Interests:    []string{"AI", "Blockchain"},
			Availability: []string{"Weekends"},
		})
		require.NoError(t, err)
		assert.Empty(t, combined)

		both, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{Interests: []string{"Web", "AI"}})
		require.NoError(t, err)
		require.Len(t, both, 2)
		assert.Equal(t, bob, both[0].UserID)
		assert.Equal(t, 90, both[0].Score)
		assert.Equal(t, 80, both[1].Score)
	})

	t.Run("ties break on last active then user id", func(t *testing.T) {
		f := newFixture(t, nil)
		viewer := f.user(t, "viewer")
		f.card(t, viewer, frontendWeb())

		now := time.Now()
		cards := f.store.Cards()
		for i, at := range []time.Time{now.Add(-time.Hour), now, now} {
			id := "cand-" + strconv.Itoa(2-i)
			_, err := cards.Upsert(ctx, &models.Card{
				ID: id, UserID: id, Name: id, Role: services.RoleBackend, Level: services.LevelAdvanced,
				Interests: []string{"Web"}, Active: models.ActivityActivelyLooking,
				LastActive: at, CreatedAt: at, UpdatedAt: at,
			})
			require.NoError(t, err)
		}

		matches, err := f.finder.FindMatches(ctx, viewer, services.MatchFilter{})
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "cand-0", matches[0].UserID)
		assert.Equal(t, "cand-1", matches[1].UserID)
		assert.Equal(t, "cand-2", matches[2].UserID)
	})

	t.Run("annotates connect status", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.card(t, alice, frontendWeb())
		f.card(t, bob, backendWeb())

		req, err := f.conns.SendConnect(ctx, bob, services.ConnectInput{To: alice})
		require.NoError(t, err)

		matches, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.NotNil(t, matches[0].ConnectStatus)
		assert.Equal(t, models.ConnectionPending, matches[0].ConnectStatus.Status)
		assert.False(t, matches[0].ConnectStatus.FromMe)
		assert.Equal(t, req.ID, matches[0].ConnectStatus.RequestID)
	})

	t.Run("event scope excludes registered users", func(t *testing.T) {
		f := newFixture(t, nil)
		alice, bob := f.user(t, "alice"), f.user(t, "bob")
		f.card(t, alice, frontendWeb())
		f.card(t, bob, backendWeb())

		_, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{EventID: "missing"})
		requireCode(t, err, apperr.CodeNotFound)

		ev := createEvent(t, f, 0, 1, 4)
		matches, err := f.finder.FindMatches(ctx, alice, services.MatchFilter{EventID: ev.ID})
		require.NoError(t, err)
		assert.Len(t, matches, 1)

		_, err = f.events.Register(ctx, ev.ID, bob, registration("bob", 1))
		require.NoError(t, err)

		matches, err = f.finder.FindMatches(ctx, alice, services.MatchFilter{EventID: ev.ID})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

type countingCache struct {
	cache.Noop
	values map[string]string
	sets   int
}

func (c *countingCache) Get(_ context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *countingCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.sets++
	c.values[key] = value
	return nil
}

func (c *countingCache) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := c.values[k]; ok {
			delete(c.values, k)
			n++
		}
	}
	return n, nil
}

func TestActiveCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	c := &countingCache{values: map[string]string{}}
	finder := services.NewTeamFinderService(
		f.store.Cards(), f.store.Connections(), f.store.Users(), f.store.Events(), f.store.Registrations(),
		c, time.Minute,
	)

	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	_, err := finder.SaveCard(ctx, alice, frontendWeb())
	require.NoError(t, err)
	_, err = finder.SaveCard(ctx, bob, backendWeb())
	require.NoError(t, err)

	n, err := finder.ActiveCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = finder.ActiveCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 1, c.sets)

	_, err = finder.UpdateActivity(ctx, bob, models.ActivityBusy)
	require.NoError(t, err)

	n, err = finder.ActiveCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 2, c.sets)
}
