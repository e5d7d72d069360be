package goGrant

import (
	"context"
	"fmt"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"github.com/MrEthical07/goGrant/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IssueTokens mints an access/refresh pair for an already authenticated user.
// An empty requestedScope selects Config.Tokens.DefaultScope. Existing tokens
// of the user are left alone.
func (e *Engine) IssueTokens(ctx context.Context, user User, requestedScope string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if strings.TrimSpace(user.ID) == "" {
		return TokenPair{}, ErrUserNotFound
	}

	res := e.flows.Issue(ctx, user.ID, requestedScope)
	if res.Failure != internalflows.IssueFailureNone {
		return TokenPair{}, e.issueError(res)
	}

	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventTokenIssued, true, user.ID, res.ClientID, nil, func() map[string]string {
		return map[string]string{"scope": res.Scope}
	})
	return e.tokenPair(res.AccessToken, res.RefreshToken, res.Scope, res.ExpiresAt), nil
}

func (e *Engine) issueError(res internalflows.IssueResult) error {
	switch res.Failure {
	case internalflows.IssueFailureScope:
		return ErrInvalidScope
	case internalflows.IssueFailureClient, internalflows.IssueFailureStore:
		e.logger.Error("token issuance failed", zap.Error(res.Err))
		return storeError(res.Err)
	default:
		return fmt.Errorf("generate token: %w", res.Err)
	}
}

func (e *Engine) tokenPair(access, refresh, granted string, expiresAt time.Time) TokenPair {
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(e.config.Tokens.AccessTTL / time.Second),
		ExpiresAt:    expiresAt,
		Scope:        granted,
	}
}

// defaultClient returns the password-grant client, registering it on first
// use. The resolved client is cached for the engine's lifetime.
func (e *Engine) defaultClient(ctx context.Context) (token.Client, error) {
	if c := e.client.Load(); c != nil {
		return *c, nil
	}

	c, err := e.store.EnsureClient(ctx, token.Client{
		ID:        uuid.NewString(),
		Name:      e.config.Tokens.ClientName,
		Type:      token.ClientConfidential,
		Grant:     token.GrantPassword,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		return token.Client{}, err
	}
	e.client.Store(&c)
	return c, nil
}

func (e *Engine) issueFlowDeps() internalflows.IssueDeps {
	return internalflows.IssueDeps{
		DefaultScope:  e.config.Tokens.DefaultScope,
		AllowedScopes: e.allowedScopes,
		AccessTTL:     e.config.Tokens.AccessTTL,
		Now:           e.now,
		EnsureClient:  e.defaultClient,
		NewPair:       e.newPair,
		SavePair:      e.store.SavePair,
	}
}
