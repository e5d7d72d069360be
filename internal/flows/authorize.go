package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goGrant/scope"
	"github.com/MrEthical07/goGrant/token"
)

// AuthorizeFailureKind classifies bearer check failures for root-level mapping.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureMissing
	AuthorizeFailureUnknown
	AuthorizeFailureExpired
	AuthorizeFailureStore
	AuthorizeFailureScope
	AuthorizeFailureUserMissing
	AuthorizeFailureInactive
	AuthorizeFailureDirectory
)

type AuthorizeResult struct {
	Failure AuthorizeFailureKind
	Err     error
	Token   token.AccessToken
	Scopes  scope.Set
	User    UserRecord
}

type AuthorizeDeps struct {
	Directory DirectoryDeps
	Now       func() time.Time
	Access    func(context.Context, string) (token.AccessToken, error)
}

// RunAuthorize checks that bearer names a live access token carrying
// required (when non-empty) and loads its owner. Expired rows are rejected
// even when the store still holds them.
func RunAuthorize(ctx context.Context, bearer, required string, deps AuthorizeDeps) AuthorizeResult {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return AuthorizeResult{Failure: AuthorizeFailureMissing}
	}

	at, err := deps.Access(ctx, token.Hash(bearer))
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return AuthorizeResult{Failure: AuthorizeFailureUnknown, Err: err}
		}
		return AuthorizeResult{Failure: AuthorizeFailureStore, Err: err}
	}
	if at.Expired(deps.Now()) {
		return AuthorizeResult{Failure: AuthorizeFailureExpired, Token: at}
	}

	scopes := scope.Parse(at.Scope)
	if required != "" && !scopes.Contains(required) {
		return AuthorizeResult{Failure: AuthorizeFailureScope, Token: at, Scopes: scopes}
	}

	user, err := deps.Directory.FindByID(ctx, at.UserID)
	if err != nil {
		if deps.Directory.isNotFound(err) {
			return AuthorizeResult{Failure: AuthorizeFailureUserMissing, Err: err, Token: at, Scopes: scopes}
		}
		return AuthorizeResult{Failure: AuthorizeFailureDirectory, Err: err, Token: at, Scopes: scopes}
	}
	if !user.Active {
		return AuthorizeResult{Failure: AuthorizeFailureInactive, Token: at, Scopes: scopes, User: user}
	}

	return AuthorizeResult{Token: at, Scopes: scopes, User: user}
}
