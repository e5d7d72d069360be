package goGrant

import (
	"context"
	"fmt"

	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"go.uber.org/zap"
)

// Refresh consumes refreshToken and returns a new pair with the same user,
// client and scope.
//
// An unknown, already used or revoked token returns ErrInvalidRefreshToken.
// A token whose paired access token has expired is deleted and returns
// ErrRefreshTokenExpired. Of two concurrent calls with the same token exactly
// one succeeds.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)
	if res.Failure != internalflows.RefreshFailureNone {
		err := e.refreshError(res)
		if res.Failure == internalflows.RefreshFailureExpired {
			e.metricInc(MetricRefreshExpired)
		} else {
			e.metricInc(MetricRefreshFailure)
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.ClientID, err, nil)
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.ClientID, nil, nil)
	return e.tokenPair(res.AccessToken, res.RefreshToken, res.Scope, res.ExpiresAt), nil
}

func (e *Engine) refreshError(res internalflows.RefreshResult) error {
	switch res.Failure {
	case internalflows.RefreshFailureEmpty, internalflows.RefreshFailureNotFound:
		return ErrInvalidRefreshToken
	case internalflows.RefreshFailureExpired:
		return ErrRefreshTokenExpired
	case internalflows.RefreshFailureRotate:
		e.logger.Error("refresh rotation failed", zap.Error(res.Err))
		return storeError(res.Err)
	default:
		return fmt.Errorf("generate token: %w", res.Err)
	}
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		AccessTTL:        e.config.Tokens.AccessTTL,
		RevokeSuperseded: e.config.Tokens.RevokeSupersededAccess,
		Now:              e.now,
		NewPair:          e.newPair,
		Rotate:           e.store.Rotate,
	}
}
