package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goGrant/scope"
	"github.com/MrEthical07/goGrant/token"
)

// IssueFailureKind classifies token issuance failures.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureScope
	IssueFailureClient
	IssueFailureRandom
	IssueFailureStore
)

// IssueResult carries the plaintext tokens of a freshly stored pair.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    time.Time
	ClientID     string
}

type IssueDeps struct {
	DefaultScope  string
	AllowedScopes scope.Set
	AccessTTL     time.Duration
	Now           func() time.Time

	EnsureClient func(context.Context) (token.Client, error)
	NewPair      func() (string, string, error)
	SavePair     func(context.Context, token.Pair) error
}

// RunIssue mints and stores an access/refresh pair for userID. An empty
// requested scope selects DefaultScope; a non-empty one must be a subset of
// AllowedScopes when that set is configured.
func RunIssue(ctx context.Context, userID, requested string, deps IssueDeps) IssueResult {
	granted := scope.Normalize(requested)
	if granted == "" {
		granted = scope.Normalize(deps.DefaultScope)
	}
	if len(deps.AllowedScopes) > 0 && !scope.Parse(granted).SubsetOf(deps.AllowedScopes) {
		return IssueResult{Failure: IssueFailureScope, Scope: granted}
	}

	client, err := deps.EnsureClient(ctx)
	if err != nil {
		return IssueResult{Failure: IssueFailureClient, Err: err}
	}

	access, refresh, err := deps.NewPair()
	if err != nil {
		return IssueResult{Failure: IssueFailureRandom, Err: err}
	}

	now := deps.Now()
	expiresAt := now.Add(deps.AccessTTL)
	accessHash := token.Hash(access)

	pair := token.Pair{
		Access: token.AccessToken{
			Hash:      accessHash,
			UserID:    userID,
			ClientID:  client.ID,
			Scope:     granted,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		},
		Refresh: token.RefreshToken{
			Hash:       token.Hash(refresh),
			UserID:     userID,
			ClientID:   client.ID,
			AccessHash: accessHash,
			CreatedAt:  now,
		},
	}
	if err := deps.SavePair(ctx, pair); err != nil {
		return IssueResult{Failure: IssueFailureStore, Err: err}
	}

	return IssueResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Scope:        granted,
		ExpiresAt:    expiresAt,
		ClientID:     client.ID,
	}
}
