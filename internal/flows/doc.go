// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunIssue, RunRefresh, RunAuthorize, etc.)
// accepts a typed dependency struct and returns a result carrying a failure
// kind instead of a host error. The root package maps failure kinds to its
// sentinel errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, token store, reset
// signer, limiters and notifier. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goGrant (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency funcs.
package flows
