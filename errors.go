package goGrant

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned by Login for every credential failure
	// and by VerifyCredentials for a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound reports an identifier or email that matches no user.
	// Directories wrap it when a lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountInactive reports a correct password on an inactive account.
	ErrAccountInactive = errors.New("account inactive")
	// ErrInvalidRefreshToken reports an unknown or already consumed refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshTokenExpired reports a refresh token whose paired access token
	// has expired. The refresh token is deleted when this is returned.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidResetRequest covers every reset confirmation with a bad uid,
	// a bad or stale ticket, or an unknown user.
	ErrInvalidResetRequest = errors.New("invalid password reset request")
	// ErrPasswordHashChanged is returned by PasswordHashSwapper when the
	// stored hash no longer matches the expected one.
	ErrPasswordHashChanged = errors.New("password hash changed")
	// ErrUnauthenticated reports a missing, unknown or expired bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInsufficientScope reports a valid bearer token lacking the required scope.
	ErrInsufficientScope = errors.New("insufficient scope")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidScope      = errors.New("invalid scope")
	ErrPasswordPolicy    = errors.New("password policy violation")
	ErrRateLimited       = errors.New("rate limited")
	// ErrDirectoryUnavailable wraps infrastructure failures of the user directory.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrTokenStoreUnavailable wraps infrastructure failures of the token store.
	ErrTokenStoreUnavailable = errors.New("token store unavailable")
	// ErrNotificationFailure wraps a failed reset mail dispatch.
	ErrNotificationFailure = errors.New("notification failure")
	ErrEngineNotReady      = errors.New("engine not initialized")
)

// Status is the HTTP-level rendering of an engine error: a status code and a
// short message that is safe to show to callers.
type Status struct {
	Code    int
	Message string
}

// StatusOf maps err to the response every HTTP adapter returns. Directory
// and token store outages, like errors that are not engine sentinels, become
// 500 "Internal server error". Only an engine that is closed or was never
// built reports 503.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Status{Code: http.StatusOK}
	case errors.Is(err, ErrRateLimited):
		return Status{http.StatusTooManyRequests, "Too many requests"}
	case errors.Is(err, ErrInvalidCredentials):
		return Status{http.StatusUnauthorized, "Invalid credentials"}
	case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrRefreshTokenExpired):
		return Status{http.StatusUnauthorized, "Invalid or expired refresh token"}
	case errors.Is(err, ErrUnauthenticated):
		return Status{http.StatusUnauthorized, "Authentication required"}
	case errors.Is(err, ErrInsufficientScope):
		return Status{http.StatusForbidden, "Insufficient scope"}
	case errors.Is(err, ErrPermissionDenied):
		return Status{http.StatusForbidden, "Permission denied"}
	case errors.Is(err, ErrInvalidResetRequest):
		return Status{http.StatusBadRequest, "Invalid token or user ID"}
	case errors.Is(err, ErrPasswordPolicy):
		return Status{http.StatusBadRequest, "Password does not meet requirements"}
	case errors.Is(err, ErrInvalidScope):
		return Status{http.StatusBadRequest, "Invalid scope"}
	case errors.Is(err, ErrUserNotFound):
		return Status{http.StatusNotFound, "User not found"}
	case errors.Is(err, ErrAccountInactive):
		return Status{http.StatusUnauthorized, "Invalid credentials"}
	case errors.Is(err, ErrEngineNotReady):
		return Status{http.StatusServiceUnavailable, "Service unavailable"}
	default:
		return Status{http.StatusInternalServerError, "Internal server error"}
	}
}
