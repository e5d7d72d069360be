// Package goGrant is an OAuth2 password-grant token service core: it
// verifies credentials, issues opaque bearer and refresh tokens, rotates
// refresh tokens exactly once, checks bearer tokens against a required scope
// and runs a stateless password reset flow.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGrant is the public surface. It exposes [Engine], [Builder], [Config],
// the value types and the sentinel errors. Flow orchestration, throttling,
// reset tickets and audit dispatch live under internal/. Persistence is
// behind [token.Store] and the [UserDirectory], [Notifier] and [GroupStore]
// ports; adapters ship in token/*, directory and notify.
//
// # Tokens
//
// Access and refresh tokens are 256-bit random strings. Only their SHA-256
// digests are stored, so a leaked store cannot be replayed. An access token
// is valid until its ExpiresAt; a refresh token is valid until its paired
// access token expires and is consumed by its first use.
//
// # Errors
//
// Every failure is one of the Err* sentinels, possibly wrapped. [StatusOf]
// maps them to the HTTP status and message the adapters return.
package goGrant
