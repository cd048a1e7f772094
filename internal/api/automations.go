package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/earnest-s/slate-core/internal/automation"
)

// defaultExecutionLimit bounds execution history queries without an
// explicit limit parameter.
const defaultExecutionLimit = 20

// automationRequest is the body for creating or updating an automation.
type automationRequest struct {
	Name        string             `json:"name"`
	Slug        string             `json:"slug,omitempty"`
	Description string             `json:"description,omitempty"`
	Enabled     *bool              `json:"enabled,omitempty"`
	Trigger     automation.Trigger `json:"trigger"`
	Steps       []automation.Step  `json:"steps"`
}

// handleListAutomations returns all automations sorted by name.
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	automations, err := s.automations.List(r.Context())
	if err != nil {
		s.logger.Error("listing automations failed", "error", err)
		writeInternalError(w, "listing automations failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"automations": automations,
		"count":       len(automations),
	})
}

// handleCreateAutomation creates an automation and binds its trigger.
func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var req automationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	a := &automation.Automation{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Enabled:     true,
		Trigger:     req.Trigger,
		Steps:       req.Steps,
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}

	if err := s.automations.Create(r.Context(), a); err != nil {
		writeAutomationError(w, err)
		return
	}

	s.rebindTriggers(r.Context())
	writeJSON(w, http.StatusCreated, a)
}

// handleGetAutomation returns one automation by ID, falling back to
// slug lookup so clients can use human-readable addresses.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.automations.Get(r.Context(), id)
	if errors.Is(err, automation.ErrNotFound) {
		a, err = s.automations.GetBySlug(r.Context(), id)
	}
	if err != nil {
		writeNotFound(w, "automation not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleUpdateAutomation applies a partial update to an automation.
func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.automations.Get(r.Context(), id)
	if err != nil {
		writeNotFound(w, "automation not found: "+id)
		return
	}

	var req automationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if req.Name != "" {
		a.Name = req.Name
	}
	if req.Slug != "" {
		a.Slug = req.Slug
	}
	if req.Description != "" {
		a.Description = req.Description
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}
	if req.Trigger.Kind != "" {
		a.Trigger = req.Trigger
	}
	if req.Steps != nil {
		a.Steps = req.Steps
	}

	if err := s.automations.Update(r.Context(), a); err != nil {
		writeAutomationError(w, err)
		return
	}

	s.rebindTriggers(r.Context())
	writeJSON(w, http.StatusOK, a)
}

// handleDeleteAutomation removes an automation and its trigger binding.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.automations.Delete(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found: "+id)
			return
		}
		s.logger.Error("deleting automation failed", "id", id, "error", err)
		writeInternalError(w, "deleting automation failed")
		return
	}

	s.rebindTriggers(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleRunAutomation executes an automation's pipeline and returns the
// execution record. The response status reflects the pipeline outcome,
// not just request acceptance.
func (s *Server) handleRunAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exec, err := s.engine.Run(r.Context(), id, automation.TriggerManual)
	if err != nil {
		switch {
		case errors.Is(err, automation.ErrNotFound):
			writeNotFound(w, "automation not found: "+id)
		case errors.Is(err, automation.ErrDisabled):
			writeConflict(w, "automation is disabled")
		default:
			s.logger.Error("automation run failed", "id", id, "error", err)
			writeInternalError(w, "running automation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// handleListExecutions returns recent executions for an automation,
// newest first. Accepts ?limit=N up to 100.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.automations.Get(r.Context(), id); err != nil {
		writeNotFound(w, "automation not found: "+id)
		return
	}

	limit := defaultExecutionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeBadRequest(w, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	executions, err := s.execRepo.ListExecutions(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing executions failed", "id", id, "error", err)
		writeInternalError(w, "listing executions failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"executions": executions,
		"count":      len(executions),
	})
}

// rebindTriggers refreshes trigger subscriptions from the current
// enabled set. Skipped when the server runs without a binder (tests,
// read-only deployments).
func (s *Server) rebindTriggers(ctx context.Context) {
	if s.binder == nil {
		return
	}
	enabled, err := s.automations.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("refreshing trigger bindings failed", "error", err)
		return
	}
	s.binder.Rebind(ctx, enabled)
}

// writeAutomationError maps automation domain errors to HTTP responses.
func writeAutomationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, automation.ErrExists):
		writeConflict(w, "automation with this ID or slug already exists")
	case errors.Is(err, automation.ErrInvalidName),
		errors.Is(err, automation.ErrInvalidSlug),
		errors.Is(err, automation.ErrInvalidTrigger),
		errors.Is(err, automation.ErrInvalidStep),
		errors.Is(err, automation.ErrNoSteps),
		errors.Is(err, automation.ErrInvalid):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, automation.ErrNotFound):
		writeNotFound(w, "automation not found")
	default:
		writeInternalError(w, "automation operation failed")
	}
}
