// Package token defines the persisted shape of issued OAuth2 credentials and
// the storage port the engine uses to keep them.
//
// # Opaque tokens
//
// Access and refresh tokens are random strings handed to clients once. Only
// their SHA-256 digest ([Hash]) is ever written to a [Store], so a leaked
// store dump cannot be replayed against the API.
//
// # Rotation
//
// [Store.Rotate] is the single atomic step behind a refresh: it validates the
// presented refresh token, checks the paired access token's expiry, consumes
// the refresh token and persists the successor pair. Implementations must
// guarantee that of any number of concurrent rotations of one refresh token
// exactly one succeeds and the rest observe [ErrNotFound].
//
// # Architecture boundaries
//
// This package is a leaf. It does NOT know about users, passwords, scopes as
// a grammar, or HTTP. Implementations live in the memstore, redisstore and
// sqlstore subpackages; storetest holds the behavioural suite they share.
package token
