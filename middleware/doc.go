// Package middleware exposes net/http adapters for the goGrant Access Guard.
//
// # Guards
//
//   - [Guard] authenticates the bearer token and checks an optional scope.
//   - [RequireRole] checks a role on a request that already passed Guard.
//
// Guard reads the Authorization header, calls Engine.Authorize, and stores
// the *goGrant.AuthResult in the request context for handlers and for
// RequireRole.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every decision
// is made by the Engine, and every rejection is rendered with
// goGrant.StatusOf so callers see the same status codes and messages as the
// gin API in httpapi.
package middleware
