// Package limiters implements the failed-login lockout tracker.
//
// The tracker keeps two Redis keys per email: a failure counter whose TTL is
// the counting window, and a lock marker whose TTL is the lockout duration.
// The counter is advanced with INCR so concurrent failures never lose counts,
// and expiry of the lock marker is what ends a lockout; no scheduled job is
// involved.
//
// Failures are keyed by normalized email rather than user id so that attempts
// against unknown addresses are tracked exactly like attempts against real
// accounts.
package limiters
