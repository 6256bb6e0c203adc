package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gatekeeper-core/internal/engine"
)

// handleListDevices returns all devices, newest first.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.engine.ListDevices(r.Context())
	if err != nil {
		s.writeEngineError(w, r, "list devices", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var spec engine.DeviceSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.engine.CreateDevice(r.Context(), spec)
	if err != nil {
		s.writeEngineError(w, r, "create device", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get device", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleUpdateDevice applies a partial update. Omitted fields are kept.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var patch engine.DevicePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.engine.UpdateDevice(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeEngineError(w, r, "update device", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device with its users and audit trail.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, "delete device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

// handleVerifyDevicePassword checks a device's shared secret.
func (s *Server) handleVerifyDevicePassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ok, err := s.engine.VerifyDevicePassword(r.Context(), chi.URLParam(r, "id"), req.Password)
	if err != nil {
		s.writeEngineError(w, r, "verify device password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}
