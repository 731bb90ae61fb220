// Package password implements the argon2id credential hasher used by the login
// flow.
//
// Hashes are serialized in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$digest) so the cost parameters travel
// with the hash and verification never depends on engine configuration.
// Verification compares digests with crypto/subtle so a mismatch position leaks
// no timing signal.
//
// # What this package must NOT do
//
//   - Persist anything or perform I/O.
//   - Accept degraded cost parameters below the floors enforced by [New].
package password
