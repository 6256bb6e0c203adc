// Package auth provides the secrets and tokens of Gatekeeper Core.
//
// It covers two unrelated credentials:
//   - Device shared secrets, hashed with Argon2id (OWASP 2025 parameters)
//     and stored as PHC strings. Plaintext never leaves this package.
//   - Operator bearer tokens: HS256 JWTs carrying a Role, checked against
//     a static role-permission map by the HTTP layer.
//
// Caller identities presented with relay commands are not handled here;
// see the access package.
package auth
