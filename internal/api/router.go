package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gatekeeper-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health and metrics (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/devices", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermDeviceRead)).Get("/", s.handleListDevices)
				r.With(s.requirePermission(auth.PermDeviceManage)).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
					r.With(s.requirePermission(auth.PermDeviceManage)).Patch("/", s.handleUpdateDevice)
					r.With(s.requirePermission(auth.PermDeviceManage)).Delete("/", s.handleDeleteDevice)
					r.With(s.requirePermission(auth.PermDeviceManage)).Post("/verify-password", s.handleVerifyDevicePassword)

					r.With(s.requirePermission(auth.PermDeviceRead)).Get("/users", s.handleListUsers)
					r.With(s.requirePermission(auth.PermDeviceRead)).Get("/users/active", s.handleListActiveUsers)
					r.With(s.requirePermission(auth.PermAccessManage)).Post("/users", s.handleGrantAccess)
					r.With(s.requirePermission(auth.PermDeviceRead)).Post("/check", s.handleCheckAccess)

					r.With(s.requirePermission(auth.PermDeviceOperate)).Post("/commands", s.handleDispatchCommand)

					r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditEntries)
					r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit/verify", s.handleVerifyAuditChain)
				})
			})

			r.With(s.requirePermission(auth.PermAccessManage)).Delete("/users/{id}", s.handleRevokeAccess)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit/recent", s.handleListRecentAuditEntries)
		})
	})

	return r
}

// handleHealth reports whether the engine can reach its store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"version": s.version,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
