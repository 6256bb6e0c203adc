package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gatekeeper-core/internal/engine"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeUnauthorized    = "unauthorised"
	ErrCodeForbidden       = "forbidden"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeInvalidIdentity = "invalid_identity"
	ErrCodeLockTimeout     = "lock_timeout"
	ErrCodeUnavailable     = "storage_unavailable"
	ErrCodeCanceled        = "canceled"
)

// statusClientClosedRequest is the de facto status for a request the client
// abandoned before it completed.
const statusClientClosedRequest = 499

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeEngineError maps an engine error to a status code by its kind.
// Internal and storage details are logged, not returned.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := engine.KindOf(err)
	switch kind {
	case engine.KindNotFound:
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case engine.KindConflict:
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case engine.KindInvalid:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case engine.KindInvalidIdentity:
		writeError(w, http.StatusBadRequest, ErrCodeInvalidIdentity, err.Error())
	case engine.KindLockTimeout:
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, ErrCodeLockTimeout, "device is busy, retry")
	case engine.KindStorage:
		s.logger.Error(op+" failed", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage unavailable, retry")
	case engine.KindCanceled:
		writeError(w, statusClientClosedRequest, ErrCodeCanceled, "request canceled")
	default:
		s.logger.Error(op+" failed", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
		writeInternalError(w, op+" failed")
	}
}
