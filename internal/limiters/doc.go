// Package limiters provides the password-reset throttle, built the same way
// as the internal/rate login throttle.
//
// [PasswordResetLimiter] counts reset requests per email and confirm
// attempts per uid, each optionally also per client IP, in fixed windows.
// Every check is also an increment: an attempt that is refused still counts.
//
// The limiter is nil-safe: calling any method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import goGrant or any sibling internal package.
//   - Make policy decisions beyond counting; the engine decides consequences.
package limiters
