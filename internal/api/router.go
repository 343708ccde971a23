package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taskwise/internal/taskservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *taskservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Natural-language requests and raw grammar commands.
	r.Post("/ask", h.Ask)
	r.Post("/commands", h.Command)
	r.Get("/grammar", h.Grammar)

	// Read-only views.
	r.Get("/notebooks", h.ListNotebooks)
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/{id}", h.GetTask)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
