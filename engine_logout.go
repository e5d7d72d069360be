package goGrant

import (
	"context"
	"strconv"
	"strings"

	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"go.uber.org/zap"
)

// Revoke deletes the access token named by bearer together with its paired
// refresh token. Expired tokens can still be revoked; an unknown token
// returns ErrUnauthenticated.
func (e *Engine) Revoke(ctx context.Context, bearer string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, bearer)
	switch res.Failure {
	case internalflows.LogoutFailureNone:
	case internalflows.LogoutFailureStore:
		e.logger.Error("token revocation failed", zap.Error(res.Err))
		return storeError(res.Err)
	default:
		return ErrUnauthenticated
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, res.UserID, "", nil, nil)
	return nil
}

// RevokeUser deletes every token pair of userID and returns how many access
// tokens were removed.
func (e *Engine) RevokeUser(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if strings.TrimSpace(userID) == "" {
		return 0, ErrUserNotFound
	}

	n, err := e.flows.LogoutAll(ctx, userID)
	if err != nil {
		e.logger.Error("user token revocation failed", zap.String("user_id", userID), zap.Error(err))
		return 0, storeError(err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
	return n, nil
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		Access:       e.store.Access,
		RevokeAccess: e.store.RevokeAccess,
		RevokeUser:   e.store.RevokeUser,
	}
}
