package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mentor-chat/internal/handlers"
	"mentor-chat/internal/middleware"
	"mentor-chat/internal/websocket"
)

// NetlifyRelayPath is the path the original browser widget posts to.
const NetlifyRelayPath = "/.netlify/functions/gemini"

func New(
	relayHandler *handlers.RelayHandler,
	sessionHandler *handlers.SessionHandler,
	wsHub *websocket.Hub,
	relayLimiter *middleware.RateLimiter,
	allowedOrigins []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The relay answers every method itself so non-POST gets its own 405 body.
	relay := http.Handler(http.HandlerFunc(relayHandler.Relay))
	if relayLimiter != nil {
		relay = relayLimiter.Middleware(relay)
	}
	r.Handle(NetlifyRelayPath, relay)

	r.Route("/api/v1", func(r chi.Router) {
		r.Handle("/gemini", relay)

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/{id}", sessionHandler.Get)
			r.Delete("/{id}", sessionHandler.Delete)
			r.Put("/{id}/draft", sessionHandler.SetDraft)
			r.With(limit(relayLimiter)).Post("/{id}/messages", sessionHandler.Submit)
			r.With(limit(relayLimiter)).Post("/{id}/options", sessionHandler.SelectOption)

			// ──── WebSocket ────
			r.Get("/{id}/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}
