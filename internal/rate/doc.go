// Package rate provides the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - gg:rl:login:   login failures per identifier
//   - gg:rl:loginip: login failures per client IP
//
// A budget of N allows N failures; the (N+1)th attempt in the window is
// refused before credentials are checked.
//
// # What this package must NOT do
//
//   - Implement reset-flow policies (those live in internal/limiters).
//   - Be imported outside the goGrant module.
package rate
