// Package middleware provides net/http integration for authkit: session
// cookie handling, login/logout handlers, and guard middleware that resolves
// a [authkit.Principal] into the request context.
//
// The guards read the session id from the configured cookie, validate it
// against the engine, and reject with JSON error bodies. CSRF-protected
// guards additionally require the X-CSRF-Token header to match the
// session's stored token.
package middleware
