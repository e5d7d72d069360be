package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goGrant/token"
)

type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureMissing
	LogoutFailureUnknown
	LogoutFailureStore
)

type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	UserID  string
}

// LogoutDeps captures revocation dependencies.
type LogoutDeps struct {
	Access       func(context.Context, string) (token.AccessToken, error)
	RevokeAccess func(context.Context, string) error
	RevokeUser   func(context.Context, string) (int, error)
}

// RunLogout deletes the access token named by bearer and its paired refresh
// token. Expired tokens can still be revoked.
func RunLogout(ctx context.Context, bearer string, deps LogoutDeps) LogoutResult {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return LogoutResult{Failure: LogoutFailureMissing}
	}

	hash := token.Hash(bearer)
	at, err := deps.Access(ctx, hash)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return LogoutResult{Failure: LogoutFailureUnknown, Err: err}
		}
		return LogoutResult{Failure: LogoutFailureStore, Err: err}
	}

	if err := deps.RevokeAccess(ctx, hash); err != nil {
		return LogoutResult{Failure: LogoutFailureStore, Err: err, UserID: at.UserID}
	}
	return LogoutResult{UserID: at.UserID}
}

// RunLogoutAll revokes every token pair of userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	return deps.RevokeUser(ctx, userID)
}
