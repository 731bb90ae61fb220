// Package session owns the server-side session records: the model, the binary
// wire codec, random token generation, and the Redis-backed store.
//
// # Design
//
// A session binds an unguessable 128-bit id to a user id, a 256-bit CSRF token,
// and an absolute expiry. Records are immutable once saved — there is no renewal
// and no sliding expiration; validity is decided at read time against ExpiresAt,
// with the Redis TTL acting only as garbage collection. A per-user index set
// supports invalidating every session of a user at once.
//
// # What this package must NOT do
//
//   - Know about users beyond their opaque id (roles are re-read by the engine).
//   - Mutate a stored session for any reason other than deletion.
package session
