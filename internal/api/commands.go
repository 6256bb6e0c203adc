package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

type commandRequest struct {
	Command relay.Command `json:"command"`
	Caller  string        `json:"caller"`
}

// handleDispatchCommand runs a relay command through the dispatcher.
//
// Responses:
//   - 200 with the result when the command was applied (or was redundant)
//   - 403 with the result when policy rejected the caller
//   - 400 invalid_identity when the caller credential is malformed; the
//     rejection is still audited
func (s *Server) handleDispatchCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.engine.DispatchCommand(r.Context(), chi.URLParam(r, "id"), req.Command, req.Caller)
	if err != nil {
		s.writeEngineError(w, r, "dispatch command", err)
		return
	}
	if err := res.Err(); err != nil {
		s.writeEngineError(w, r, "dispatch command", err)
		return
	}

	status := http.StatusOK
	if !res.Applied() {
		status = http.StatusForbidden
	}
	writeJSON(w, status, res)
}
