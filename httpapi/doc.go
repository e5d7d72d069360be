// Package httpapi is the gin HTTP surface of a goGrant engine: login,
// refresh, logout, password reset, a scope-protected dashboard, an
// admin-only role check, health and Prometheus metrics.
//
// Every error response is {"error": message} with the status and message
// chosen by goGrant.StatusOf. Requests are logged with zap and tagged with
// an X-Request-ID that is also passed to the engine for audit events.
package httpapi
