package handlers

import (
	"net/http"
	"time"

	"eduhacktech-backend/internal/middleware"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventHandler serves events and the registration workflow
type EventHandler struct {
	events  *services.EventService
	uploads *services.UploadService
}

// NewEventHandler creates a new event handler
func NewEventHandler(events *services.EventService, uploads *services.UploadService) *EventHandler {
	return &EventHandler{events: events, uploads: uploads}
}

type eventRequest struct {
	Title           string          `json:"title" validate:"notblank,max=200"`
	Description     string          `json:"description"`
	RegistrationFee float64         `json:"registrationFee" validate:"gte=0"`
	TeamSize        models.TeamSize `json:"teamSize"`
	StartDate       time.Time       `json:"startDate" validate:"required"`
	EndDate         time.Time       `json:"endDate" validate:"required"`
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	caller, _ := middleware.GetIdentity(r.Context())
	ev, err := h.events.CreateEvent(r.Context(), caller, services.EventInput{
		Title:           req.Title,
		Description:     req.Description,
		RegistrationFee: req.RegistrationFee,
		TeamSize:        req.TeamSize,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("event_id", ev.ID).
		Str("organizer_id", ev.OrganizerID).
		Float64("fee", ev.RegistrationFee).
		Msg("Event created")

	respondSuccess(w, http.StatusCreated, ev)
}

// ListEvents handles GET /api/v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, events)
}

// GetEvent handles GET /api/v1/events/{event_id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "event_id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, ev)
}

type problemStatementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DocumentURL string `json:"documentUrl" validate:"omitempty,url"`
}

func (p *problemStatementRequest) input() *services.ProblemStatementInput {
	if p == nil {
		return nil
	}
	return &services.ProblemStatementInput{Title: p.Title, Description: p.Description, DocumentURL: p.DocumentURL}
}

type registerRequest struct {
	TeamName         string                   `json:"teamName"`
	TeamMembers      []models.TeamMember      `json:"teamMembers" validate:"required,min=1,dive"`
	Locality         string                   `json:"locality"`
	ProblemStatement *problemStatementRequest `json:"problemStatement"`
}

// Register handles POST /api/v1/events/{event_id}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	eventID := chi.URLParam(r, "event_id")
	userID := middleware.GetUserID(r.Context())
	reg, err := h.events.Register(r.Context(), eventID, userID, services.RegistrationInput{
		TeamName:         req.TeamName,
		TeamMembers:      req.TeamMembers,
		Locality:         req.Locality,
		ProblemStatement: req.ProblemStatement.input(),
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Str("registration_id", reg.ID).
		Str("status", reg.Status).
		Msg("Team registered")

	respondSuccess(w, http.StatusCreated, reg)
}

// Unregister handles DELETE /api/v1/events/{event_id}/register
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Unregister(r.Context(), chi.URLParam(r, "event_id"), middleware.GetUserID(r.Context())); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondMessage(w, "Registration cancelled")
}

// MyRegistrations handles GET /api/v1/events/my-registrations
func (h *EventHandler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	views, err := h.events.MyRegistrations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, views)
}

// EventRegistrations handles GET /api/v1/events/{event_id}/registrations
func (h *EventHandler) EventRegistrations(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetIdentity(r.Context())
	regs, err := h.events.EventRegistrations(r.Context(), caller, chi.URLParam(r, "event_id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondList(w, regs)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// UpdateRegistrationStatus handles PUT /api/v1/events/{event_id}/registrations/{registration_id}/status
func (h *EventHandler) UpdateRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	caller, _ := middleware.GetIdentity(r.Context())
	reg, err := h.events.UpdateRegistrationStatus(r.Context(), caller,
		chi.URLParam(r, "event_id"), chi.URLParam(r, "registration_id"), req.Status)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, reg)
}

type reviewRequest struct {
	Status  string `json:"status" validate:"required,oneof=approved rejected"`
	Remarks string `json:"remarks" validate:"max=1000"`
}

// ReviewProblem handles PUT /api/v1/events/{event_id}/registrations/{registration_id}/review-problem
func (h *EventHandler) ReviewProblem(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	caller, _ := middleware.GetIdentity(r.Context())
	reg, err := h.events.ReviewProblem(r.Context(), caller,
		chi.URLParam(r, "event_id"), chi.URLParam(r, "registration_id"), req.Status, req.Remarks)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("registration_id", reg.ID).
		Str("status", req.Status).
		Str("reviewer", caller.UserID).
		Msg("Problem statement reviewed")

	respondSuccess(w, http.StatusOK, reg)
}

// ResubmitProblem handles PUT /api/v1/events/{event_id}/resubmit-problem
func (h *EventHandler) ResubmitProblem(w http.ResponseWriter, r *http.Request) {
	var req problemStatementRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	reg, err := h.events.ResubmitProblem(r.Context(), chi.URLParam(r, "event_id"),
		middleware.GetUserID(r.Context()), *req.input())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, reg)
}

// CompletePayment handles PUT /api/v1/events/{event_id}/complete-payment
func (h *EventHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	userID := middleware.GetUserID(r.Context())

	reg, err := h.events.CompletePayment(r.Context(), eventID, userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Float64("amount", reg.PaymentAmount).
		Msg("Payment completed")

	respondSuccess(w, http.StatusOK, reg)
}

type uploadRequest struct {
	Filename    string `json:"filename" validate:"notblank"`
	ContentType string `json:"contentType" validate:"required"`
}

// ProblemUpload handles POST /api/v1/events/{event_id}/problem-upload
func (h *EventHandler) ProblemUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	resp, err := h.uploads.ProblemUploadURL(r.Context(), chi.URLParam(r, "event_id"),
		middleware.GetUserID(r.Context()), req.Filename, req.ContentType)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, resp)
}
