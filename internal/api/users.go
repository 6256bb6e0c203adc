package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/engine"
)

// handleListUsers returns every user authorised on a device, newest first.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListUsers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// handleListActiveUsers returns the users whose window covers now.
func (s *Server) handleListActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListActiveUsers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "list active users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// handleGrantAccess authorises a caller on a device. Grants made over the
// API are always local; directory users are managed by the sync.
func (s *Server) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	var spec engine.UserSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	spec.Source = access.SourceLocal
	spec.ExternalID = ""

	u, err := s.engine.GrantAccess(r.Context(), chi.URLParam(r, "id"), spec)
	if err != nil {
		s.writeEngineError(w, r, "grant access", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleRevokeAccess deletes an authorized user.
func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RevokeAccess(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, "revoke access", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkAccessRequest struct {
	Caller string `json:"caller"`
}

// handleCheckAccess evaluates a caller without dispatching or auditing.
func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	var req checkAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	decision, err := s.engine.CheckAccess(r.Context(), chi.URLParam(r, "id"), req.Caller)
	if err != nil {
		s.writeEngineError(w, r, "check access", err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
