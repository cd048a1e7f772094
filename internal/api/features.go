package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/earnest-s/slate-core/internal/feature"
)

// featureView is the JSON representation of a feature.
type featureView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Supported    bool            `json:"supported"`
	States       []feature.State `json:"states"`
	CurrentState *feature.State  `json:"current_state,omitempty"`
}

// makeFeatureView builds the wire representation of a feature. The
// current state is omitted when the hardware cannot report one.
func (s *Server) makeFeatureView(r *http.Request, f feature.Feature) featureView {
	ctx := r.Context()
	view := featureView{
		ID:        f.ID(),
		Name:      f.DisplayName(),
		Supported: f.IsSupported(ctx),
		States:    f.AllStates(),
	}
	if view.Supported {
		if state, err := f.CurrentState(ctx); err == nil {
			view.CurrentState = &state
		}
	}
	return view
}

// handleListFeatures returns all registered features. Pass
// ?supported=true to filter to features the hardware exposes.
func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	var features []feature.Feature
	if r.URL.Query().Get("supported") == "true" {
		features = s.features.ListSupported(r.Context())
	} else {
		features = s.features.List()
	}

	views := make([]featureView, 0, len(features))
	for _, f := range features {
		views = append(views, s.makeFeatureView(r, f))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"features": views,
		"count":    len(views),
	})
}

// handleGetFeature returns a single feature with its state set.
func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, err := s.features.Get(id)
	if err != nil {
		writeNotFound(w, "feature not found: "+id)
		return
	}

	writeJSON(w, http.StatusOK, s.makeFeatureView(r, f))
}

// handleGetFeatureState returns the current hardware state of a feature.
func (s *Server) handleGetFeatureState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, err := s.features.Get(id)
	if err != nil {
		writeNotFound(w, "feature not found: "+id)
		return
	}

	state, err := f.CurrentState(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, feature.ErrUnsupported):
			writeConflict(w, "feature not supported on this hardware")
		case errors.Is(err, feature.ErrUnknownState):
			writeInternalError(w, "hardware reported an unknown state")
		default:
			writeInternalError(w, "reading feature state failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feature_id": id,
		"state":      state,
	})
}

// setStateRequest is the body for PUT /features/{id}/state.
type setStateRequest struct {
	State string `json:"state"`
}

// handleSetFeatureState applies a named state to a feature. The write
// goes through the registry so the change is announced on the bus and
// to WebSocket clients.
func (s *Server) handleSetFeatureState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req setStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.State == "" {
		writeBadRequest(w, "state is required")
		return
	}

	state, err := s.features.SetState(r.Context(), id, req.State)
	if err != nil {
		switch {
		case errors.Is(err, feature.ErrNotRegistered):
			writeNotFound(w, "feature not found: "+id)
		case errors.Is(err, feature.ErrUnknownState):
			writeBadRequest(w, "unknown state: "+req.State)
		case errors.Is(err, feature.ErrUnsupported):
			writeConflict(w, "feature not supported on this hardware")
		default:
			s.logger.Error("feature state write failed", "feature_id", id, "error", err)
			writeInternalError(w, "applying feature state failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feature_id": id,
		"state":      state,
	})
}
