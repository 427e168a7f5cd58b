package cmd

import (
	"net/http"

	"eduhacktech-backend/internal/handlers"
	"eduhacktech-backend/internal/middleware"
	"eduhacktech-backend/internal/models"
	"eduhacktech-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// app holds the services behind the HTTP API
type app struct {
	users   *services.UserService
	finder  *services.TeamFinderService
	conns   *services.ConnectionService
	chat    *services.ChatService
	events  *services.EventService
	uploads *services.UploadService
	hub     *services.WSHub
	checks  map[string]handlers.Pinger
}

// newRouter builds the chi router with every route of the API
func newRouter(a *app) http.Handler {
	userHandler := handlers.NewUserHandler(a.users)
	finderHandler := handlers.NewTeamFinderHandler(a.finder, a.conns)
	chatHandler := handlers.NewChatHandler(a.chat)
	eventHandler := handlers.NewEventHandler(a.events, a.uploads)
	wsHandler := handlers.NewWebSocketHandler(a.hub, a.users, a.chat)
	healthHandler := handlers.NewHealthHandler(a.checks)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)
		r.Get("/team-finder/active-count", finderHandler.ActiveCount)
		r.Get("/events", eventHandler.ListEvents)
		r.Get("/events/{event_id}", eventHandler.GetEvent)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(a.users))

			r.Get("/users/me", userHandler.GetMe)
			r.Post("/users/me/token", userHandler.RefreshToken)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.With(middleware.RequireRole(models.RoleAdmin)).Put("/users/{user_id}/role", userHandler.SetRole)

			r.Post("/team-finder", finderHandler.SaveCard)
			r.Get("/team-finder/me", finderHandler.GetMyCard)
			r.Patch("/team-finder/active", finderHandler.UpdateActivity)
			r.Get("/team-finder/matches", finderHandler.Matches)
			r.Post("/team-finder/connect", finderHandler.SendConnect)
			r.Put("/team-finder/connect/{request_id}", finderHandler.RespondConnect)
			r.Get("/team-finder/requests", finderHandler.Requests)
			r.Get("/team-finder/hackmates", finderHandler.Hackmates)

			r.Post("/chat/conversation", chatHandler.GetOrCreateConversation)
			r.Get("/chat/conversations", chatHandler.ListConversations)
			r.Get("/chat/conversation/{conversation_id}/messages", chatHandler.GetMessages)
			r.Put("/chat/conversation/{conversation_id}/read", chatHandler.MarkRead)
			r.Post("/chat/messages", chatHandler.SendMessage)
			r.Get("/chat/unread-count", chatHandler.UnreadCount)

			r.Get("/events/my-registrations", eventHandler.MyRegistrations)
			r.Post("/events/{event_id}/register", eventHandler.Register)
			r.Delete("/events/{event_id}/register", eventHandler.Unregister)
			r.Put("/events/{event_id}/resubmit-problem", eventHandler.ResubmitProblem)
			r.Put("/events/{event_id}/complete-payment", eventHandler.CompletePayment)
			r.Post("/events/{event_id}/problem-upload", eventHandler.ProblemUpload)

			// Organizer routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin))
				r.Post("/events", eventHandler.CreateEvent)
				r.Get("/events/{event_id}/registrations", eventHandler.EventRegistrations)
				r.Put("/events/{event_id}/registrations/{registration_id}/status", eventHandler.UpdateRegistrationStatus)
				r.Put("/events/{event_id}/registrations/{registration_id}/review-problem", eventHandler.ReviewProblem)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
