package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// listSessions handles GET /api/sessions.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list sessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// startSession handles POST /api/sessions.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if err := decodeJSON(r, &body, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(body); err != nil {
		s.logger.Warn("start session: rejected payload", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidFlow)
		return
	}

	flow, err := s.resolveFlow(r, body)
	if errors.Is(err, domain.ErrFlowNotFound) {
		writeError(w, http.StatusNotFound, "Flow not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "resolve flow", err)
		return
	}

	sess, err := s.sessions.Start(r.Context(), flow)
	if sess == nil {
		s.internalError(w, r, "start session", err)
		return
	}
	if err != nil {
		// A run cut short by the traversal ceiling still produced a session.
		s.logger.Warn("start session: run halted", "session_id", sess.ID, "error", err)
	}

	s.publish(nil, sess)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) resolveFlow(r *http.Request, body startSessionRequest) (domain.Flow, error) {
	if body.Flow != nil {
		return body.Flow.flow(), nil
	}
	if body.FlowID != nil {
		sf, err := s.workspace.Store().Get(r.Context(), *body.FlowID)
		if err != nil {
			return domain.Flow{}, err
		}
		return sf.FlowData, nil
	}
	sf, err := s.workspace.Current(r.Context())
	if err != nil {
		return domain.Flow{}, err
	}
	return sf.FlowData, nil
}

// getSession handles GET /api/sessions/{id}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "load session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// deleteSession handles DELETE /api/sessions/{id}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.internalError(w, r, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submitInput handles POST /api/sessions/{id}/input.
func (s *Server) submitInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body inputRequest
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateStruct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input: text is required")
		return
	}

	text, err := s.policy.Sanitize(*body.Text)
	if err != nil {
		s.logger.Warn("submit input: rejected", "session_id", id, "error", err, "size", len(*body.Text))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid input: %v", err))
		return
	}

	before, err := s.sessions.Load(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "load session", err)
		return
	}

	sess, err := s.sessions.Submit(r.Context(), id, text)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, domain.ErrNotAwaitingInput):
		writeError(w, http.StatusConflict, "Session is not awaiting input")
		return
	case errors.Is(err, domain.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "Invalid input: "+domain.ErrEmptyInput.Error())
		return
	case sess == nil:
		s.internalError(w, r, "submit input", err)
		return
	case err != nil:
		s.logger.Warn("submit input: run halted", "session_id", id, "error", err)
	}

	s.publish(before, sess)
	writeJSON(w, http.StatusOK, sess)
}

// publish broadcasts what changed between two snapshots to SSE subscribers.
func (s *Server) publish(before, after *domain.Session) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode session diff", "session_id", after.ID, "error", err)
		return
	}
	s.streams.Broadcast(after.ID, string(data))
}

// subscribeSession handles GET /api/sessions/{id}/events (SSE). The first
// event is the current snapshot as a diff from nothing.
func (s *Server) subscribeSession(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.internalError(w, r, "subscribe", errors.New("streaming not supported"))
		return
	}

	id := chi.URLParam(r, "id")
	current, err := s.sessions.Load(r.Context(), id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "load session", err)
		return
	}

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	if initial, err := json.Marshal(domain.Diff(nil, current)); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", initial)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
