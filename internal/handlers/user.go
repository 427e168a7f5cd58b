package handlers

import (
	"net/http"

	"eduhacktech-backend/internal/middleware"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type createUserRequest struct {
	Name  string `json:"name" validate:"notblank,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	user, token, err := h.userService.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("User created")

	respondSuccess(w, http.StatusCreated, authResponse{User: user, Token: token})
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// RefreshToken handles POST /api/v1/users/me/token
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	token, err := h.userService.IssueToken(ctx, userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	user, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, authResponse{User: user, Token: token})
}

type pushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/users/me/push-token. An empty token disables push.
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), middleware.GetUserID(r.Context()), req.PushToken); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondMessage(w, "Push token updated")
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user organizer admin"`
}

// SetRole handles PUT /api/v1/users/{user_id}/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	caller, _ := middleware.GetIdentity(r.Context())
	user, err := h.userService.SetRole(r.Context(), caller, chi.URLParam(r, "user_id"), req.Role)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Str("by", caller.UserID).
		Msg("User role changed")

	respondSuccess(w, http.StatusOK, user)
}
