package goGrant

import (
	"context"
	"errors"
	"fmt"

	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"github.com/MrEthical07/goGrant/internal/rate"
	"go.uber.org/zap"
)

// VerifyCredentials resolves identifier (email first, then username) and
// checks secret against the stored hash. It has no side effects.
//
// Errors: ErrUserNotFound, ErrInvalidCredentials, ErrAccountInactive or
// ErrDirectoryUnavailable.
func (e *Engine) VerifyCredentials(ctx context.Context, identifier, secret string) (User, error) {
	if !e.ready() {
		return User{}, ErrEngineNotReady
	}

	res := e.flows.VerifyCredentials(ctx, identifier, secret)
	if res.Failure != internalflows.CredentialFailureNone {
		return User{}, credentialError(res)
	}
	return publicUser(res.User), nil
}

// Login verifies credentials and issues a token pair with the default scope.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	return e.LoginWithScope(ctx, identifier, secret, "")
}

// LoginWithScope is Login with an explicit scope request. Every requested
// scope must be in Config.Tokens.AllowedScopes.
//
// Every credential failure is returned as ErrInvalidCredentials; the
// wrapped cause (ErrUserNotFound, ErrAccountInactive) is only for logs and
// audit. Throttled attempts return ErrRateLimited.
func (e *Engine) LoginWithScope(ctx context.Context, identifier, secret, requestedScope string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, identifier, secret, requestedScope)
	switch res.Failure {
	case internalflows.LoginFailureNone:
	case internalflows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitRateLimit(ctx, "login")
		e.emitAudit(ctx, auditEventLoginRateLimited, false, res.Credential.User.ID, "", ErrRateLimited, nil)
		return nil, ErrRateLimited
	case internalflows.LoginFailureLimiter:
		e.logger.Error("login throttle unavailable", zap.Error(res.Err))
		return nil, storeError(res.Err)
	case internalflows.LoginFailureCredentials:
		err := credentialError(res.Credential)
		if !errors.Is(err, ErrDirectoryUnavailable) {
			err = loginError(err)
		} else {
			e.logger.Error("user directory lookup failed", zap.Error(res.Err))
		}
		e.metricInc(MetricLoginFailure)
		e.logger.Debug("login rejected",
			zap.String("user_id", res.Credential.User.ID),
			zap.String("reason", string(auditErrorCode(err))),
		)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Credential.User.ID, "", err, nil)
		return nil, err
	case internalflows.LoginFailureIssue:
		err := e.issueError(res.Issue)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Credential.User.ID, "", err, nil)
		return nil, err
	default:
		return nil, ErrEngineNotReady
	}

	user := publicUser(res.Credential.User)
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricTokenIssued)
	if res.Upgraded {
		e.metricInc(MetricPasswordHashUpgraded)
		e.emitAudit(ctx, auditEventPasswordHashUpgraded, true, user.ID, "", nil, nil)
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, res.Issue.ClientID, nil, func() map[string]string {
		return map[string]string{"scope": res.Issue.Scope}
	})

	return &LoginResult{
		User:   user,
		Tokens: e.tokenPair(res.Issue.AccessToken, res.Issue.RefreshToken, res.Issue.Scope, res.Issue.ExpiresAt),
	}, nil
}

func credentialError(res internalflows.CredentialResult) error {
	switch res.Failure {
	case internalflows.CredentialFailureUserNotFound:
		return ErrUserNotFound
	case internalflows.CredentialFailureInactive:
		return ErrAccountInactive
	case internalflows.CredentialFailureDirectory:
		return directoryError(res.Err)
	default:
		return ErrInvalidCredentials
	}
}

func loginError(cause error) error {
	if errors.Is(cause, ErrInvalidCredentials) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrInvalidCredentials, cause)
}

func (e *Engine) credentialFlowDeps() internalflows.CredentialDeps {
	return internalflows.CredentialDeps{
		Directory: e.directoryFlowDeps(),
		Verify:    e.hasher.Verify,
		Burn:      e.hasher.Burn,
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		Credentials: e.credentialFlowDeps(),
		RateLimited: rate.ErrRateLimited,
		Issue: func(ctx context.Context, u internalflows.UserRecord, requested string) internalflows.IssueResult {
			return e.flows.Issue(ctx, u.ID, requested)
		},
		UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		NeedsUpgrade: func(hash string) bool {
			upgrade, err := e.hasher.NeedsUpgrade(hash)
			return err == nil && upgrade
		},
		HashPassword:     e.hasher.Hash,
		SwapPasswordHash: e.swapPasswordHash,
		HashChanged:      ErrPasswordHashChanged,
		Warn:             e.warn,
	}

	if e.rateLimiter != nil {
		deps.CheckRate = func(ctx context.Context, identifier string) error {
			return e.rateLimiter.CheckLogin(ctx, identifier, clientIPFromContext(ctx))
		}
		deps.IncrementRate = func(ctx context.Context, identifier string) error {
			return e.rateLimiter.IncrementLogin(ctx, identifier, clientIPFromContext(ctx))
		}
		deps.ResetRate = e.rateLimiter.ResetLogin
	}
	return deps
}
