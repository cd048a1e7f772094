package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system/status", s.handleSystemStatus)

		// Feature endpoints
		r.Route("/features", func(r chi.Router) {
			r.Get("/", s.handleListFeatures)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetFeature)
				r.Get("/state", s.handleGetFeatureState)
				r.Put("/state", s.handleSetFeatureState)
			})
		})

		// Automation endpoints
		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.handleListAutomations)
			r.Post("/", s.handleCreateAutomation)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAutomation)
				r.Patch("/", s.handleUpdateAutomation)
				r.Delete("/", s.handleDeleteAutomation)
				r.Post("/run", s.handleRunAutomation)
				r.Get("/executions", s.handleListExecutions)
			})
		})

		// Macro endpoints
		r.Route("/macros", func(r chi.Router) {
			r.Get("/", s.handleListMacros)
			r.Post("/", s.handleCreateMacro)

			r.Route("/record", func(r chi.Router) {
				r.Post("/start", s.handleRecordStart)
				r.Post("/events", s.handleRecordEvent)
				r.Post("/stop", s.handleRecordStop)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMacro)
				r.Delete("/", s.handleDeleteMacro)
				r.Post("/replay", s.handleReplayMacro)
			})
		})

		// WebSocket event feed
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
