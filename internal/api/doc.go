// Package api implements the HTTP REST API and WebSocket server for Gatekeeper Core.
//
// This package provides:
//   - REST endpoints under /api/v1 for devices, authorized users, relay
//     commands and the audit trail
//   - WebSocket hub broadcasting audit entries and relay transitions
//   - JWT bearer authentication with role permissions and ticket-based
//     WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Errors
//
// Engine errors are mapped by kind: not found 404, conflict 409, validation
// and invalid identity 400, lock timeout and storage failures 503 with
// Retry-After. A policy rejection of a command is not an error; it returns
// 403 with the audited result.
//
// # Security
//
// Operator tokens are issued offline with "gatekeeper token". An empty
// security.jwt.secret disables authentication, which is only suitable for
// a loopback listener.
package api
