// Package internal contains helpers that are private to goGrant, chiefly
// opaque token generation from an injected random source.
//
// # Sub-packages
//
//   - audit: event types, sinks and the buffered dispatcher
//   - flows: pure-function flow orchestrators for every Engine operation
//   - limiters: password-reset request and confirm throttling
//   - logging: zap logger construction
//   - rate: Redis-backed failed-login counters
//   - sqldb: SQL connections and embedded migrations
//   - testkit: seeded engines for adapter and black-box tests
//   - ticket: stateless password-reset tickets
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGrant API.
//   - Be imported by any package outside the goGrant module.
package internal
