package flows

import (
	"context"
	"errors"
	"strings"
)

// CredentialFailureKind classifies credential verification failures.
type CredentialFailureKind int

const (
	CredentialFailureNone CredentialFailureKind = iota
	CredentialFailureEmpty
	CredentialFailureUserNotFound
	CredentialFailureInvalidPassword
	CredentialFailureInactive
	CredentialFailureDirectory
)

type CredentialResult struct {
	Failure CredentialFailureKind
	Err     error
	User    UserRecord
}

type CredentialDeps struct {
	Directory DirectoryDeps
	Verify    func(password, hash string) (bool, error)
	// Burn spends one hash verification's worth of work when the user is
	// unknown.
	Burn func(password string)
}

// RunVerifyCredentials resolves identifier and checks secret against the
// stored hash. It has no side effects.
func RunVerifyCredentials(ctx context.Context, identifier, secret string, deps CredentialDeps) CredentialResult {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return CredentialResult{Failure: CredentialFailureEmpty}
	}

	user, err := ResolveIdentifier(ctx, identifier, deps.Directory)
	if err != nil {
		if deps.Directory.isNotFound(err) {
			if deps.Burn != nil {
				deps.Burn(secret)
			}
			return CredentialResult{Failure: CredentialFailureUserNotFound, Err: err}
		}
		return CredentialResult{Failure: CredentialFailureDirectory, Err: err}
	}

	ok, err := deps.Verify(secret, user.PasswordHash)
	if err != nil || !ok {
		return CredentialResult{Failure: CredentialFailureInvalidPassword, Err: err, User: user}
	}
	if !user.Active {
		return CredentialResult{Failure: CredentialFailureInactive, User: user}
	}

	return CredentialResult{User: user}
}

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureLimiter
	LoginFailureCredentials
	LoginFailureIssue
)

type LoginResult struct {
	Failure    LoginFailureKind
	Err        error
	Credential CredentialResult
	Issue      IssueResult
	Upgraded   bool
}

type LoginDeps struct {
	Credentials CredentialDeps

	CheckRate     func(context.Context, string) error
	IncrementRate func(context.Context, string) error
	ResetRate     func(context.Context, string) error
	RateLimited   error

	Issue func(context.Context, UserRecord, string) IssueResult

	UpgradeOnLogin   bool
	NeedsUpgrade     func(string) bool
	HashPassword     func(string) (string, error)
	SwapPasswordHash func(ctx context.Context, id, current, hash string) error
	HashChanged      error

	Warn func(string, ...any)
}

func (d LoginDeps) warn(msg string, args ...any) {
	if d.Warn != nil {
		d.Warn(msg, args...)
	}
}

// RunLogin verifies credentials, issues a token pair and maintains the
// failed-login counters. A successful login with an outdated hash rewrites
// the hash when UpgradeOnLogin is set; that step never fails the login.
func RunLogin(ctx context.Context, identifier, secret, scope string, deps LoginDeps) LoginResult {
	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, identifier); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureLimiter, Err: err}
		}
	}

	cred := RunVerifyCredentials(ctx, identifier, secret, deps.Credentials)
	if cred.Failure != CredentialFailureNone {
		if cred.Failure != CredentialFailureDirectory && deps.IncrementRate != nil {
			if err := deps.IncrementRate(ctx, identifier); err != nil {
				if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
					return LoginResult{Failure: LoginFailureRateLimited, Err: err, Credential: cred}
				}
				deps.warn("login counter increment failed", "error", err)
			}
		}
		return LoginResult{Failure: LoginFailureCredentials, Err: cred.Err, Credential: cred}
	}

	issued := deps.Issue(ctx, cred.User, scope)
	if issued.Failure != IssueFailureNone {
		return LoginResult{Failure: LoginFailureIssue, Err: issued.Err, Credential: cred, Issue: issued}
	}

	if deps.ResetRate != nil {
		if err := deps.ResetRate(ctx, identifier); err != nil {
			deps.warn("login counter reset failed", "error", err)
		}
	}

	upgraded := false
	if deps.UpgradeOnLogin && deps.NeedsUpgrade != nil && deps.NeedsUpgrade(cred.User.PasswordHash) {
		upgraded = upgradeHash(ctx, cred.User.ID, cred.User.PasswordHash, secret, deps)
	}

	return LoginResult{Credential: cred, Issue: issued, Upgraded: upgraded}
}

// upgradeHash leaves the stored hash alone if it changed since the
// credentials were checked, e.g. by a concurrent password reset.
func upgradeHash(ctx context.Context, userID, current, secret string, deps LoginDeps) bool {
	hash, err := deps.HashPassword(secret)
	if err != nil {
		deps.warn("password rehash failed", "user_id", userID, "error", err)
		return false
	}
	if err := deps.SwapPasswordHash(ctx, userID, current, hash); err != nil {
		if deps.HashChanged != nil && errors.Is(err, deps.HashChanged) {
			return false
		}
		deps.warn("password hash upgrade failed", "user_id", userID, "error", err)
		return false
	}
	return true
}
