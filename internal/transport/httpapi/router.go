package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Node URIs are taken from the path remainder, so both
// /api/v1/params/laser1:power and /api/v1/params/laser1/power work.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(newCORSPolicy(s.cfg.CORS).middleware)
	r.Use(limitBody)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/token", s.handleIssueToken)

		r.Get("/tree", s.handleBrowse)
		r.Get("/params/*", s.handleGetParam)
		r.Put("/params/*", s.handleSetParam)
		r.Post("/events/*", s.handleSignal)

		r.Get("/audit", s.handleListAudit)
	})

	if s.ws != nil {
		r.Handle(s.wsPath, s.ws)
	}

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"nodes":   s.tree.Len(),
	})
}
