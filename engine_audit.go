package goGrant

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventTokenIssued          = "token_issued"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventAuthorizeFailure     = "authorize_failure"
	auditEventPermissionDenied     = "permission_denied"
	auditEventLogout               = "logout"
	auditEventLogoutAll            = "logout_all"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventPasswordHashUpgraded = "password_hash_upgraded"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
	auditEventTokensPurged         = "tokens_purged"
)

// AuditErrorCode is the stable failure code carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountInactive    AuditErrorCode = "account_inactive"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrInsufficientScope  AuditErrorCode = "insufficient_scope"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrInvalidScope       AuditErrorCode = "invalid_scope"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrNotification       AuditErrorCode = "notification_failure"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	clientID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		ClientID:  clientID,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, limiterScope string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{"scope": limiterScope}
	})
}

// auditErrorCode checks the most specific sentinels first: a login failure
// wraps its cause in ErrInvalidCredentials.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountInactive):
		return auditErrAccountInactive
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRefreshTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrInvalidResetRequest):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrInsufficientScope):
		return auditErrInsufficientScope
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrInvalidScope):
		return auditErrInvalidScope
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrNotificationFailure):
		return auditErrNotification
	case errors.Is(err, ErrDirectoryUnavailable),
		errors.Is(err, ErrTokenStoreUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
