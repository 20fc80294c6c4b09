package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "intellimind/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates and configures a new chi router with all the application's routes.
// turnTimeout bounds the message endpoint; it must exceed the LLM timeout so the
// session, not the router, decides when a turn timed out.
func NewRouter(chatHandler *ChatHandler, sessionHandler *SessionHandler, turnTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Liveness probe.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// Short JSON endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// --- Settings ---
			r.Get("/settings", chatHandler.GetSettings)
			r.Post("/settings", chatHandler.UpdateSettings)

			// --- Chats ---
			r.Get("/chats", chatHandler.GetChats)
			r.Post("/chats", chatHandler.CreateChat)
			r.Get("/chats/search", chatHandler.SearchChats)
			r.Get("/chats/{chatID}", chatHandler.GetChat)
			r.Get("/chats/{chatID}/export", chatHandler.ExportChat)
			r.Put("/chats/{chatID}/title", chatHandler.UpdateChatTitle)
			r.Delete("/chats/{chatID}", chatHandler.HandleDeleteChat)

			// --- Sessions ---
			r.Post("/sessions", sessionHandler.OpenSession)
			r.Get("/sessions/{sessionID}", sessionHandler.GetSession)
			r.Delete("/sessions/{sessionID}", sessionHandler.CloseSession)
			r.Put("/sessions/{sessionID}/active", sessionHandler.SwitchChat)
			r.Delete("/sessions/{sessionID}/chats/{chatID}", sessionHandler.DeleteChat)
			r.Post("/sessions/{sessionID}/chats/{chatID}/feedback", sessionHandler.RecordFeedback)
		})

		// The turn endpoint waits on the language model.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(turnTimeout))
			r.Post("/sessions/{sessionID}/messages", sessionHandler.SubmitMessage)
		})
	})

	return r
}
