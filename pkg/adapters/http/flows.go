package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aretw0/botflow/internal/presentation/graph"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// msgInvalidFlow is the 400 body for a save without nodes or edges.
const msgInvalidFlow = "Invalid flow data: nodes and edges required"

type saveFlowResponse struct {
	Success bool               `json:"success"`
	Flow    *domain.StoredFlow `json:"flow"`
}

// getLatestFlow handles GET /api/flow.
func (s *Server) getLatestFlow(w http.ResponseWriter, r *http.Request) {
	sf, err := s.workspace.Current(r.Context())
	if err != nil {
		s.internalError(w, r, "get latest flow", err)
		return
	}
	writeJSON(w, http.StatusOK, sf.FlowData)
}

// saveFlow handles POST /api/flow.
func (s *Server) saveFlow(w http.ResponseWriter, r *http.Request) {
	var body flowDocument
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidFlow)
		return
	}
	if err := validateStruct(body); err != nil {
		s.logger.Warn("save flow: rejected payload", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidFlow)
		return
	}

	sf, err := s.workspace.Save(r.Context(), body.Name, body.flow())
	if err != nil {
		s.internalError(w, r, "save flow", err)
		return
	}
	writeJSON(w, http.StatusOK, saveFlowResponse{Success: true, Flow: sf})
}

// listFlows handles GET /api/flows.
func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.workspace.Store().List(r.Context())
	if err != nil {
		s.internalError(w, r, "list flows", err)
		return
	}
	if flows == nil {
		flows = []domain.StoredFlow{}
	}
	writeJSON(w, http.StatusOK, flows)
}

// getFlow handles GET /api/flow/{id}.
func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	sf, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sf.FlowData)
}

// getFlowMermaid handles GET /api/flow/{id}/mermaid.
func (s *Server) getFlowMermaid(w http.ResponseWriter, r *http.Request) {
	sf, ok := s.lookupFlow(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.GenerateMermaid(sf.FlowData, nil)))
}

// lookupFlow resolves the {id} parameter. Ids that are not positive
// integers are reported as not found, like unknown ones.
func (s *Server) lookupFlow(w http.ResponseWriter, r *http.Request) (*domain.StoredFlow, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Flow not found")
		return nil, false
	}

	sf, err := s.workspace.Store().Get(r.Context(), id)
	if errors.Is(err, domain.ErrFlowNotFound) {
		writeError(w, http.StatusNotFound, "Flow not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, "get flow", err)
		return nil, false
	}
	return sf, true
}
