package handlers

import (
	"net/http"
	"strings"

	"eduhacktech-backend/internal/middleware"
	"eduhacktech-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TeamFinderHandler serves cards, matches and connect requests
type TeamFinderHandler struct {
	finder *services.TeamFinderService
	conns  *services.ConnectionService
}

// NewTeamFinderHandler creates a new team finder handler
func NewTeamFinderHandler(finder *services.TeamFinderService, conns *services.ConnectionService) *TeamFinderHandler {
	return &TeamFinderHandler{finder: finder, conns: conns}
}

type cardRequest struct {
	Role          string   `json:"role" validate:"required"`
	SecondaryRole string   `json:"secondaryRole"`
	Level         string   `json:"level" validate:"required"`
	Availability  []string `json:"availability"`
	Interests     []string `json:"interests"`
	LookingFor    string   `json:"lookingFor"`
	Bio           string   `json:"bio"`
}

// SaveCard handles POST /api/v1/team-finder
func (h *TeamFinderHandler) SaveCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	card, err := h.finder.SaveCard(r.Context(), middleware.GetUserID(r.Context()), services.CardInput{
		Role:          req.Role,
		SecondaryRole: req.SecondaryRole,
		Level:         req.Level,
		Availability:  req.Availability,
		Interests:     req.Interests,
		LookingFor:    req.LookingFor,
		Bio:           req.Bio,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, card)
}

// GetMyCard handles GET /api/v1/team-finder/me
func (h *TeamFinderHandler) GetMyCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.finder.GetCard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, card)
}

type activityRequest struct {
	Active string `json:"active" validate:"required"`
}

// UpdateActivity handles PATCH /api/v1/team-finder/active
func (h *TeamFinderHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	card, err := h.finder.UpdateActivity(r.Context(), middleware.GetUserID(r.Context()), req.Active)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, card)
}

// listParam accepts both repeated and comma separated values
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Matches handles GET /api/v1/team-finder/matches
func (h *TeamFinderHandler) Matches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches, err := h.finder.FindMatches(r.Context(), middleware.GetUserID(r.Context()), services.MatchFilter{
		EventID:      q.Get("eventId"),
		Query:        q.Get("q"),
		Role:         q.Get("role"),
		Interests:    listParam(r, "interests"),
		Availability: listParam(r, "availability"),
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, matches)
}

type connectRequest struct {
	To      string `json:"to" validate:"notblank"`
	EventID string `json:"eventId"`
	Message string `json:"message"`
}

// SendConnect handles POST /api/v1/team-finder/connect
func (h *TeamFinderHandler) SendConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	conn, err := h.conns.SendConnect(r.Context(), userID, services.ConnectInput{
		To:      req.To,
		EventID: req.EventID,
		Message: req.Message,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("request_id", conn.ID).
		Str("from", userID).
		Str("to", conn.ToUserID).
		Msg("Connect request sent")

	respondSuccess(w, http.StatusCreated, conn)
}

type respondRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// RespondConnect handles PUT /api/v1/team-finder/connect/{request_id}
func (h *TeamFinderHandler) RespondConnect(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	conn, err := h.conns.Respond(r.Context(), chi.URLParam(r, "request_id"), middleware.GetUserID(r.Context()), req.Status)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("request_id", conn.ID).
		Str("status", conn.Status).
		Msg("Connect request answered")

	respondSuccess(w, http.StatusOK, conn)
}

// Requests handles GET /api/v1/team-finder/requests
func (h *TeamFinderHandler) Requests(w http.ResponseWriter, r *http.Request) {
	views, err := h.conns.ListRequests(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, views)
}

// Hackmates handles GET /api/v1/team-finder/hackmates
func (h *TeamFinderHandler) Hackmates(w http.ResponseWriter, r *http.Request) {
	mates, err := h.conns.Hackmates(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, mates)
}

// ActiveCount handles GET /api/v1/team-finder/active-count
func (h *TeamFinderHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.finder.ActiveCount(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int64{"count": n})
}
