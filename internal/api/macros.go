package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/earnest-s/slate-core/internal/macro"
)

// handleListMacros returns all stored macro sequences sorted by name.
func (s *Server) handleListMacros(w http.ResponseWriter, r *http.Request) {
	sequences, err := s.macros.List(r.Context())
	if err != nil {
		s.logger.Error("listing macros failed", "error", err)
		writeInternalError(w, "listing macros failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"macros": sequences,
		"count":  len(sequences),
	})
}

// createMacroRequest is the body for POST /macros. It lets clients
// store a sequence assembled outside the recorder.
type createMacroRequest struct {
	Name   string        `json:"name"`
	Events []macro.Event `json:"events"`
}

// handleCreateMacro stores a macro sequence supplied by the client.
func (s *Server) handleCreateMacro(w http.ResponseWriter, r *http.Request) {
	var req createMacroRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if len(req.Events) == 0 {
		writeBadRequest(w, "events must not be empty")
		return
	}

	seq := macro.NewSequence(req.Name, req.Events)
	if err := s.macros.Save(r.Context(), seq); err != nil {
		s.logger.Error("saving macro failed", "error", err)
		writeInternalError(w, "saving macro failed")
		return
	}

	writeJSON(w, http.StatusCreated, seq)
}

// handleGetMacro returns one stored sequence.
func (s *Server) handleGetMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	seq, err := s.macros.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, macro.ErrNotFound) {
			writeNotFound(w, "macro not found: "+id)
			return
		}
		s.logger.Error("loading macro failed", "id", id, "error", err)
		writeInternalError(w, "loading macro failed")
		return
	}

	writeJSON(w, http.StatusOK, seq)
}

// handleDeleteMacro removes a stored sequence.
func (s *Server) handleDeleteMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.macros.Delete(r.Context(), id); err != nil {
		if errors.Is(err, macro.ErrNotFound) {
			writeNotFound(w, "macro not found: "+id)
			return
		}
		s.logger.Error("deleting macro failed", "id", id, "error", err)
		writeInternalError(w, "deleting macro failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReplayMacro injects a stored sequence with its recorded timing.
// The request blocks for the duration of the replay; only one replay
// runs at a time.
func (s *Server) handleReplayMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.runner.Replay(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, macro.ErrNotFound):
			writeNotFound(w, "macro not found: "+id)
		case errors.Is(err, macro.ErrReplayActive):
			writeConflict(w, "another replay is already running")
		case errors.Is(err, macro.ErrEmptySequence):
			writeConflict(w, "macro has no events")
		default:
			s.logger.Error("macro replay failed", "id", id, "error", err)
			writeInternalError(w, "macro replay failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"macro_id": id,
		"status":   "replayed",
	})
}

// recordStartRequest is the body for POST /macros/record/start.
type recordStartRequest struct {
	Name string `json:"name"`
}

// handleRecordStart begins a recording session.
func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	var req recordStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	if err := s.recorder.Start(req.Name); err != nil {
		if errors.Is(err, macro.ErrAlreadyRecording) {
			writeConflict(w, "a recording is already in progress")
			return
		}
		writeInternalError(w, "starting recording failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "recording"})
}

// recordEventRequest is the body for POST /macros/record/events.
type recordEventRequest struct {
	Kind  macro.EventKind `json:"kind"`
	Code  int             `json:"code"`
	Value int             `json:"value"`
}

// handleRecordEvent captures one input event into the open recording.
// The recorder timestamps arrival, so event gaps reproduce the caller's
// real timing.
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Kind == "" {
		writeBadRequest(w, "kind is required")
		return
	}

	if err := s.recorder.Capture(req.Kind, req.Code, req.Value); err != nil {
		if errors.Is(err, macro.ErrNotRecording) {
			writeConflict(w, "no recording in progress")
			return
		}
		writeInternalError(w, "capturing event failed")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleRecordStop finishes the recording session and persists the
// captured sequence.
func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	seq, err := s.recorder.Stop()
	if err != nil {
		if errors.Is(err, macro.ErrNotRecording) {
			writeConflict(w, "no recording in progress")
			return
		}
		writeInternalError(w, "stopping recording failed")
		return
	}

	if len(seq.Events) == 0 {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "recording captured no events")
		return
	}

	if err := s.macros.Save(r.Context(), seq); err != nil {
		s.logger.Error("saving recorded macro failed", "error", err)
		writeInternalError(w, "saving recorded macro failed")
		return
	}

	writeJSON(w, http.StatusCreated, seq)
}
