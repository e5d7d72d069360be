package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goGrant/token"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureEmpty
	RefreshFailureNextSecret
	RefreshFailureNotFound
	RefreshFailureExpired
	RefreshFailureRotate
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	ClientID     string
	Scope        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	AccessTTL        time.Duration
	RevokeSuperseded bool
	Now              func() time.Time
	NewPair          func() (string, string, error)
	Rotate           func(context.Context, token.Rotation) (token.Pair, error)
}

// RunRefresh consumes refreshToken and mints its successor pair. The lookup,
// the expiry check, the deletion of the presented token and the write of the
// new pair happen in one Rotate call so that at most one caller can consume a
// given refresh token.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if strings.TrimSpace(refreshToken) == "" {
		return RefreshResult{Failure: RefreshFailureEmpty}
	}

	access, refresh, err := deps.NewPair()
	if err != nil {
		return RefreshResult{Failure: RefreshFailureNextSecret, Err: err}
	}

	now := deps.Now()
	pair, err := deps.Rotate(ctx, token.Rotation{
		RefreshHash:      token.Hash(refreshToken),
		NextAccessHash:   token.Hash(access),
		NextRefreshHash:  token.Hash(refresh),
		NextExpiresAt:    now.Add(deps.AccessTTL),
		Now:              now,
		RevokeSuperseded: deps.RevokeSuperseded,
	})
	if err != nil {
		switch {
		case errors.Is(err, token.ErrNotFound):
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err}
		case errors.Is(err, token.ErrExpired):
			return RefreshResult{Failure: RefreshFailureExpired, Err: err}
		default:
			return RefreshResult{Failure: RefreshFailureRotate, Err: err}
		}
	}

	return RefreshResult{
		UserID:       pair.Access.UserID,
		ClientID:     pair.Access.ClientID,
		Scope:        pair.Access.Scope,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    pair.Access.ExpiresAt,
	}
}
