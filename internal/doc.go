// Package internal contains helpers that are intentionally private to authkit.
//
// # Sub-packages
//
//   - flows — pure-function flow orchestrators for every Engine operation
//   - limiters — failed-login lockout tracking keyed by email
//   - rate — core Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
