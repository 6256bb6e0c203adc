package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gatekeeper-core/internal/audit"
)

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// handleListAuditEntries returns a page of a device's audit trail.
//
// Query parameters:
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditEntries(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	offset, ok := queryInt(r, "offset")
	if !ok {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.engine.ListAuditEntries(r.Context(), chi.URLParam(r, "id"), audit.Page{Limit: limit, Offset: offset})
	if err != nil {
		s.writeEngineError(w, r, "list audit entries", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListRecentAuditEntries returns the newest entries across all devices.
func (s *Server) handleListRecentAuditEntries(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit")
	if !ok {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}

	entries, err := s.engine.ListRecentAuditEntries(r.Context(), limit)
	if err != nil {
		s.writeEngineError(w, r, "list recent audit entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleVerifyAuditChain walks a device's hash chain.
func (s *Server) handleVerifyAuditChain(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.VerifyAuditChain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "verify audit chain", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
