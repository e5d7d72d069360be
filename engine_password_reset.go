package goGrant

import (
	"context"
	"fmt"
	"strconv"

	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"github.com/MrEthical07/goGrant/internal/limiters"
	"github.com/MrEthical07/goGrant/internal/ticket"
	"go.uber.org/zap"
)

// RequestPasswordReset mails a single-use reset link to the user owning
// email. The link is Config.PasswordReset.URL with uid and token query
// parameters.
//
// An unknown email returns ErrUserNotFound. A delivery failure returns
// ErrNotificationFailure.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.RequestPasswordReset(ctx, email)
	var err error
	switch res.Failure {
	case internalflows.ResetRequestFailureNone:
	case internalflows.ResetRequestFailureEmpty, internalflows.ResetRequestFailureUserNotFound:
		err = ErrUserNotFound
	case internalflows.ResetRequestFailureRateLimited:
		e.emitRateLimit(ctx, "password_reset_request")
		err = ErrRateLimited
	case internalflows.ResetRequestFailureLimiter:
		e.logger.Error("password reset throttle unavailable", zap.Error(res.Err))
		err = storeError(res.Err)
	case internalflows.ResetRequestFailureDirectory:
		e.logger.Error("user directory lookup failed", zap.Error(res.Err))
		err = directoryError(res.Err)
	case internalflows.ResetRequestFailureTicket:
		err = fmt.Errorf("%w: %v", ErrEngineNotReady, res.Err)
	case internalflows.ResetRequestFailureSend:
		e.logger.Error("password reset mail failed", zap.String("user_id", res.UserID), zap.Error(res.Err))
		err = fmt.Errorf("%w: %v", ErrNotificationFailure, res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, err == nil, res.UserID, "", err, nil)
	if err != nil {
		return err
	}
	e.metricInc(MetricPasswordResetRequest)
	return nil
}

// ConfirmPasswordReset checks the uid/token pair from a reset link and sets
// newPassword. The ticket dies with the old password hash, so a second
// confirm with the same link fails. When Config.PasswordReset.RevokeTokens is
// set every token of the user is revoked as well.
//
// A bad uid, unknown user, wrong, reused or expired token all return
// ErrInvalidResetRequest. A too short password returns ErrPasswordPolicy.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, uid, resetToken, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.ConfirmPasswordReset(ctx, uid, resetToken, newPassword)
	var err error
	switch res.Failure {
	case internalflows.ResetConfirmFailureNone:
	case internalflows.ResetConfirmFailureUID,
		internalflows.ResetConfirmFailureUserNotFound,
		internalflows.ResetConfirmFailureTicket,
		internalflows.ResetConfirmFailureStale:
		e.logger.Debug("password reset rejected", zap.String("user_id", res.UserID), zap.NamedError("reason", res.Err))
		err = ErrInvalidResetRequest
	case internalflows.ResetConfirmFailureRateLimited:
		e.emitRateLimit(ctx, "password_reset_confirm")
		err = ErrRateLimited
	case internalflows.ResetConfirmFailureLimiter:
		e.logger.Error("password reset throttle unavailable", zap.Error(res.Err))
		err = storeError(res.Err)
	case internalflows.ResetConfirmFailurePolicy:
		err = ErrPasswordPolicy
	case internalflows.ResetConfirmFailureHash:
		err = fmt.Errorf("hash password: %w", res.Err)
	case internalflows.ResetConfirmFailureDirectory, internalflows.ResetConfirmFailureUpdate:
		e.logger.Error("user directory update failed", zap.String("user_id", res.UserID), zap.Error(res.Err))
		err = directoryError(res.Err)
	default:
		err = ErrEngineNotReady
	}

	if err != nil {
		e.metricInc(MetricPasswordResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, res.UserID, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, res.UserID, "", nil, func() map[string]string {
		return map[string]string{"revoked_tokens": strconv.Itoa(res.Revoked)}
	})
	return nil
}

// swapPasswordHash writes hash over current. Directories without
// PasswordHashSwapper get an unconditional SetPasswordHash.
func (e *Engine) swapPasswordHash(ctx context.Context, id, current, hash string) error {
	if sw, ok := e.directory.(PasswordHashSwapper); ok {
		return sw.SwapPasswordHash(ctx, id, current, hash)
	}
	return e.directory.SetPasswordHash(ctx, id, hash)
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	cfg := e.config.PasswordReset

	deps := internalflows.PasswordResetDeps{
		Directory:         e.directoryFlowDeps(),
		Signer:            e.signer,
		Now:               e.now,
		ResetURL:          cfg.URL,
		RateLimited:       limiters.ErrResetRateLimited,
		EncodeUID:         ticket.EncodeUID,
		DecodeUID:         ticket.DecodeUID,
		Send:              e.notifier.Send,
		MinPasswordLength: e.config.Password.MinLength,
		HashPassword:      e.hasher.Hash,
		SwapPasswordHash:  e.swapPasswordHash,
		HashChanged:       ErrPasswordHashChanged,
		RevokeTokens:      cfg.RevokeTokens,
		RevokeUser:        e.store.RevokeUser,
		Warn:              e.warn,
	}

	if e.resetLimiter != nil {
		deps.CheckRequestRate = func(ctx context.Context, email string) error {
			return e.resetLimiter.CheckRequest(ctx, email, clientIPFromContext(ctx))
		}
		deps.CheckConfirmRate = func(ctx context.Context, uid string) error {
			return e.resetLimiter.CheckConfirm(ctx, uid, clientIPFromContext(ctx))
		}
	}
	return deps
}
