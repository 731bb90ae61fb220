// Package rate provides internal primitives used to build Redis-backed rate
// limit keys, errors, and limiter behavior for the login surface.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al:  — login per-email
//   - ali: — login per-IP
//
// # What this package must NOT do
//
//   - Implement lockout policy (that lives in internal/limiters).
//   - Be imported outside the authkit module.
package rate
