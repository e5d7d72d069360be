package goGrant

import (
	"context"
	"errors"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"go.uber.org/zap"
)

// Authorize checks a bearer token and, when requiredScope is non-empty, that
// the token carries it. The owning user must still exist and be active.
//
// Errors: ErrUnauthenticated for a missing, unknown or expired token or an
// unusable owner; ErrInsufficientScope when the scope is missing.
func (e *Engine) Authorize(ctx context.Context, bearer, requiredScope string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := e.flows.Authorize(ctx, bearer, requiredScope)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}

	if res.Failure != internalflows.AuthorizeFailureNone {
		err := e.authorizeError(res)
		if errors.Is(err, ErrInsufficientScope) {
			e.metricInc(MetricInsufficientScope)
		} else {
			e.metricInc(MetricAuthorizeFailure)
		}
		e.emitAudit(ctx, auditEventAuthorizeFailure, false, res.Token.UserID, res.Token.ClientID, err, func() map[string]string {
			if requiredScope == "" {
				return nil
			}
			return map[string]string{"required_scope": requiredScope}
		})
		return nil, err
	}

	e.metricInc(MetricAuthorizeSuccess)
	return &AuthResult{
		User:   publicUser(res.User),
		Token:  res.Token,
		Scopes: res.Scopes,
	}, nil
}

func (e *Engine) authorizeError(res internalflows.AuthorizeResult) error {
	switch res.Failure {
	case internalflows.AuthorizeFailureScope:
		return ErrInsufficientScope
	case internalflows.AuthorizeFailureStore:
		e.logger.Error("access token lookup failed", zap.Error(res.Err))
		return storeError(res.Err)
	case internalflows.AuthorizeFailureDirectory:
		e.logger.Error("user directory lookup failed", zap.Error(res.Err))
		return directoryError(res.Err)
	default:
		return ErrUnauthenticated
	}
}

// RequireRole reports ErrPermissionDenied unless the GroupStore attaches role
// to user. Role names compare case-insensitively.
func (e *Engine) RequireRole(ctx context.Context, user User, role string) error {
	if !e.ready() || e.groups == nil {
		return ErrEngineNotReady
	}

	roles, err := e.groups.RolesFor(ctx, user.ID)
	if err != nil {
		e.logger.Error("group store lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		return directoryError(err)
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, role) {
			return nil
		}
	}

	e.metricInc(MetricPermissionDenied)
	e.emitAudit(ctx, auditEventPermissionDenied, false, user.ID, "", ErrPermissionDenied, func() map[string]string {
		return map[string]string{"role": role}
	})
	return ErrPermissionDenied
}

func (e *Engine) authorizeFlowDeps() internalflows.AuthorizeDeps {
	return internalflows.AuthorizeDeps{
		Directory: e.directoryFlowDeps(),
		Now:       e.now,
		Access:    e.store.Access,
	}
}
