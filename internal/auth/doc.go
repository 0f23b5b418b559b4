// Package auth handles badge credentials and stateless sessions.
//
// # Components
//
//   - PasswordHasher: bcrypt hashing and verification of security codes
//   - Authenticator: registration and login against the store
//   - Issuer: signed, time-bounded session tokens (HS256, 30-day window)
//   - RequireSession: HTTP middleware gating protected surfaces
//   - RedirectTarget: open-redirect-safe post-login destination handling
//
// # Session Model
//
// Sessions are stateless: the signed token carries the full session state
// (investigator ID, badge ID, role, validity window) and nothing is stored
// server-side. An expired session requires re-authentication; there is no
// refresh or rotation.
//
// # Failure Semantics
//
// Authenticate returns ErrInvalidCredentials for both unknown badges and
// wrong codes, with a dummy bcrypt compare on the unknown-badge path so the
// causes are indistinguishable by message and by timing.
package auth
