// Package authkit provides the cookie-session authentication core for the
// company management backend: session creation/validation/invalidation, password
// verification, failed-login lockout tracking, and CSRF token issuance, all backed
// by Redis.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (Principal, LoginResult, MetricsSnapshot, etc.). Flow orchestration,
// lockout accounting, and audit dispatch live under internal/ and are never
// exported. Route handlers of the host application consume the engine through the
// middleware package or the Engine methods directly; they never touch the session
// or lockout keys themselves.
//
// # What this package must NOT do
//
//   - Expose Redis clients, key layouts, or encoding details in its public API.
//   - Write to the user database beyond password-hash upgrades requested by the
//     host through [UserProvider].
//   - Distinguish "unknown email" from "wrong password" anywhere a caller can
//     observe it.
//
// # Performance contract
//
// Authenticate is the hot path. It performs one Redis round-trip for the session
// lookup and one credential-store lookup for the current role; it must not
// allocate beyond the returned Principal. Login is allowed the additional lockout
// and throttle round-trips plus one argon2 verification.
package authkit
