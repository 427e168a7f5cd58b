package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eduhacktech-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
}

type client struct {
	t *testing.T
	h http.Handler
}

func newTestClient(t *testing.T) *client {
	t.Helper()
	cfg := &config.Config{
		Database:   config.DatabaseConfig{Driver: "memory"},
		JWT:        config.JWTConfig{Secret: "test-secret"},
		TeamFinder: config.TeamFinderConfig{ActiveCountTTL: time.Minute},
		Chat:       config.ChatConfig{MaxMessageLength: 2000},
		Users:      config.UsersConfig{AdminEmails: []string{"admin@example.com"}},
	}
	st, err := openStores(context.Background(), cfg.Database)
	require.NoError(t, err)
	a, _ := newApp(cfg, st, backends{})
	return &client{t: t, h: newRouter(a)}
}

func (c *client) do(method, path, token string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (c *client) data(env envelope, dst any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(env.Data, dst))
}

// signup creates a user and returns its id and token
func (c *client) signup(name string) (string, string) {
	c.t.Helper()
	status, env := c.do(http.MethodPost, "/api/v1/users", "", map[string]string{"name": name, "email": name + "@example.com"})
	require.Equal(c.t, http.StatusCreated, status, env.Message)
	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	c.data(env, &out)
	return out.User.ID, out.Token
}

func TestTeamFinderToChatFlow(t *testing.T) {
	c := newTestClient(t)
	alice, aliceToken := c.signup("alice")
	bob, bobToken := c.signup("bob")

	status, _ := c.do(http.MethodGet, "/api/v1/team-finder/matches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := c.do(http.MethodGet, "/api/v1/team-finder/me", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)

	status, env = c.do(http.MethodPost, "/api/v1/team-finder", aliceToken, map[string]any{
		"role": "Frontend", "level": "Beginner", "interests": []string{"Web"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	status, env = c.do(http.MethodPost, "/api/v1/team-finder", bobToken, map[string]any{
		"role": "Backend", "level": "Advanced", "interests": []string{"Web"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = c.do(http.MethodGet, "/api/v1/team-finder/active-count", "", nil)
	require.Equal(t, http.StatusOK, status)
	var active map[string]int
	c.data(env, &active)
	assert.Equal(t, 2, active["count"])

	status, env = c.do(http.MethodGet, "/api/v1/team-finder/matches", aliceToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var matches []struct {
		UserID string `json:"userId"`
		Score  int    `json:"score"`
	}
	c.data(env, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, bob, matches[0].UserID)
	assert.Equal(t, 70, matches[0].Score)
	assert.Equal(t, 1, *env.Count)

	// chat is gated on an accepted request
	status, _ = c.do(http.MethodPost, "/api/v1/chat/conversation", aliceToken, map[string]string{"otherUserId": bob})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = c.do(http.MethodPost, "/api/v1/team-finder/connect", aliceToken, map[string]string{"to": bob, "message": "team up?"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var req struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	c.data(env, &req)
	assert.Equal(t, "pending", req.Status)

	status, _ = c.do(http.MethodPost, "/api/v1/team-finder/connect", aliceToken, map[string]string{"to": bob})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = c.do(http.MethodPut, "/api/v1/team-finder/connect/"+req.ID, aliceToken, map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = c.do(http.MethodPut, "/api/v1/team-finder/connect/"+req.ID, bobToken, map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = c.do(http.MethodPut, "/api/v1/team-finder/connect/"+req.ID, bobToken, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = c.do(http.MethodPut, "/api/v1/team-finder/connect/"+req.ID, bobToken, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = c.do(http.MethodGet, "/api/v1/team-finder/hackmates", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Count)

	status, env = c.do(http.MethodPost, "/api/v1/chat/conversation", aliceToken, map[string]string{"otherUserId": bob})
	require.Equal(t, http.StatusOK, status, env.Message)
	var conv struct {
		ID string `json:"id"`
	}
	c.data(env, &conv)

	status, env = c.do(http.MethodPost, "/api/v1/chat/messages", aliceToken, map[string]string{"conversationId": conv.ID, "text": "hi"})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = c.do(http.MethodGet, "/api/v1/chat/unread-count", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var unread struct {
		Total  int            `json:"total"`
		ByUser map[string]int `json:"byUser"`
	}
	c.data(env, &unread)
	assert.Equal(t, 1, unread.Total)
	assert.Equal(t, 1, unread.ByUser[alice])

	status, _ = c.do(http.MethodPut, "/api/v1/chat/conversation/"+conv.ID+"/read", bobToken, nil)
	require.Equal(t, http.StatusOK, status)

	_, env = c.do(http.MethodGet, "/api/v1/chat/unread-count", bobToken, nil)
	c.data(env, &unread)
	assert.Zero(t, unread.Total)

	status, env = c.do(http.MethodGet, "/api/v1/chat/conversation/"+conv.ID+"/messages?limit=10", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var msgs []struct {
		Text string `json:"text"`
	}
	c.data(env, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
}

func TestPaidEventRegistrationFlow(t *testing.T) {
	c := newTestClient(t)
	_, adminToken := c.signup("admin")
	_, aliceToken := c.signup("alice")

	event := map[string]any{
		"title":           "Green Hack",
		"registrationFee": 20,
		"teamSize":        map[string]int{"min": 1, "max": 3},
		"startDate":       time.Now().Add(24 * time.Hour),
		"endDate":         time.Now().Add(72 * time.Hour),
	}
	status, _ := c.do(http.MethodPost, "/api/v1/events", aliceToken, event)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := c.do(http.MethodPost, "/api/v1/events", adminToken, event)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var ev struct {
		ID string `json:"id"`
	}
	c.data(env, &ev)

	members := []map[string]string{
		{"name": "Alice", "email": "alice@example.com"},
		{"name": "Dan", "email": "dan@example.com"},
		{"name": "Eve", "email": "eve@example.com"},
		{"name": "Fay", "email": "fay@example.com"},
	}
	status, env = c.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/register", aliceToken, map[string]any{
		"teamName": "Leaf", "teamMembers": members,
		"problemStatement": map[string]string{"title": "Solar map", "description": "Map rooftops"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Team size cannot exceed 3 members", env.Message)

	status, env = c.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/register", aliceToken, map[string]any{
		"teamName": "Leaf", "teamMembers": members[:2],
		"problemStatement": map[string]string{"title": "Solar map", "description": "Map rooftops"},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var reg struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PaymentStatus string `json:"paymentStatus"`
		TeamMembers   []struct {
			Role string `json:"role"`
		} `json:"teamMembers"`
	}
	c.data(env, &reg)
	assert.Equal(t, "pending", reg.Status)
	assert.Equal(t, "pending", reg.PaymentStatus)
	assert.Equal(t, "leader", reg.TeamMembers[0].Role)
	assert.Equal(t, "member", reg.TeamMembers[1].Role)

	status, _ = c.do(http.MethodPut, "/api/v1/events/"+ev.ID+"/complete-payment", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = c.do(http.MethodPut, "/api/v1/events/"+ev.ID+"/registrations/"+reg.ID+"/review-problem", aliceToken,
		map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = c.do(http.MethodPut, "/api/v1/events/"+ev.ID+"/registrations/"+reg.ID+"/review-problem", adminToken,
		map[string]string{"status": "approved", "remarks": "Looks good"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = c.do(http.MethodPut, "/api/v1/events/"+ev.ID+"/complete-payment", aliceToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	c.data(env, &reg)
	assert.Equal(t, "completed", reg.PaymentStatus)
	assert.Equal(t, "approved", reg.Status)

	status, env = c.do(http.MethodGet, "/api/v1/events/my-registrations", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Count)

	status, env = c.do(http.MethodGet, "/api/v1/events/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var got struct {
		ParticipantCount int `json:"participantCount"`
	}
	c.data(env, &got)
	assert.Equal(t, 1, got.ParticipantCount)

	status, _ = c.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/problem-upload", aliceToken,
		map[string]string{"filename": "idea.pdf", "contentType": "application/pdf"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRolesAndHealth(t *testing.T) {
	c := newTestClient(t)
	_, adminToken := c.signup("admin")
	bob, bobToken := c.signup("bob")

	status, _ := c.do(http.MethodPut, "/api/v1/users/"+bob+"/role", bobToken, map[string]string{"role": "organizer"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env := c.do(http.MethodPut, "/api/v1/users/"+bob+"/role", adminToken, map[string]string{"role": "organizer"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = c.do(http.MethodPost, "/api/v1/users/me/token", bobToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var auth struct {
		Token string `json:"token"`
	}
	c.data(env, &auth)

	status, _ = c.do(http.MethodPost, "/api/v1/events", auth.Token, map[string]any{
		"title":     "Bob's Jam",
		"teamSize":  map[string]int{"min": 1, "max": 2},
		"startDate": time.Now(),
		"endDate":   time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusCreated, status)

	status, env = c.do(http.MethodPost, "/api/v1/users", "", map[string]string{"name": "x", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "email")

	status, env = c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}
