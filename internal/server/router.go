// Package server exposes the access layer to the bot/rendering layer
// over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/botworks/zohobridge/internal/logging"
	"github.com/botworks/zohobridge/internal/projects"
	"github.com/botworks/zohobridge/internal/store"
	"github.com/botworks/zohobridge/internal/version"
)

// Deps bundles what the HTTP surface needs.
type Deps struct {
	Store         *store.Store
	Projects      *projects.Service
	DefaultPortal string
}

// NewRouter builds the chi router for the service.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
	})

	r.Route("/api", func(r chi.Router) {
		// Credential lifecycle, driven by the external OAuth handshake.
		r.Post("/credentials", UpsertCredentialHandler(deps.Store))
		r.Get("/credentials/{conversationID}", GetCredentialHandler(deps.Store))
		r.Delete("/credentials/{conversationID}", DeleteCredentialHandler(deps.Store))

		// Bot queries.
		r.Get("/owners/resolve", ResolveOwnerHandler(deps.Projects, deps.DefaultPortal))
		r.Get("/tasks/pending", PendingTasksHandler(deps.Projects, deps.DefaultPortal))
		r.Get("/timelogs", TimeLogsHandler(deps.Projects, deps.DefaultPortal))
		r.Get("/projects", ProjectsHandler(deps.Projects, deps.DefaultPortal))
	})

	return r
}

// requestIDMiddleware tags each request with a correlation ID, reusing
// the caller's X-Request-Id when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}
