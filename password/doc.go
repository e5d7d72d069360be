// Package password implements password hashing and verification with Argon2id defaults
// and read-only support for bcrypt and Django PBKDF2 hashes.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Hasher] supports transparent upgrades: if the stored hash was produced with
// weaker parameters or a legacy scheme, [Hasher.NeedsUpgrade] returns true so the
// caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum length)
// is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goGrant package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
