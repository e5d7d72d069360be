package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound reports an unknown, revoked or already consumed token.
	ErrNotFound = errors.New("token not found")
	// ErrExpired reports a refresh token whose paired access token has expired.
	ErrExpired = errors.New("token expired")
	// ErrUnavailable wraps backend failures of a Store.
	ErrUnavailable = errors.New("token store unavailable")
)

// ClientType mirrors the OAuth2 client classification.
type ClientType string

const (
	ClientConfidential ClientType = "confidential"
	ClientPublic       ClientType = "public"
)

// GrantType names the authorization grant a client is registered for.
type GrantType string

const (
	GrantPassword GrantType = "password"
)

// Client is a registered client application. Clients are unique per
// (Name, Grant).
type Client struct {
	ID        string
	Name      string
	Type      ClientType
	Grant     GrantType
	CreatedAt time.Time
}

// AccessToken is the stored form of a bearer token. It is never mutated after
// creation.
type AccessToken struct {
	Hash      string
	UserID    string
	ClientID  string
	Scope     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (a AccessToken) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// RefreshToken is the stored form of a refresh token. It is bound to exactly
// one access token and lives only as long as that token has not expired.
type RefreshToken struct {
	Hash       string
	UserID     string
	ClientID   string
	AccessHash string
	CreatedAt  time.Time
}

// Pair is an access token with its refresh token.
type Pair struct {
	Access  AccessToken
	Refresh RefreshToken
}

// Rotation describes one refresh step. The successor pair inherits user,
// client and scope from the consumed refresh token.
type Rotation struct {
	RefreshHash     string
	NextAccessHash  string
	NextRefreshHash string
	NextExpiresAt   time.Time
	Now             time.Time

	// RevokeSuperseded deletes the access token paired with the consumed
	// refresh token instead of leaving it valid until it expires.
	RevokeSuperseded bool
}

// Store persists clients and tokens.
type Store interface {
	// EnsureClient returns the client registered under (c.Name, c.Grant),
	// creating it from c when absent. Concurrent callers observe one client.
	EnsureClient(ctx context.Context, c Client) (Client, error)
	// SavePair persists the access token, then its refresh token.
	SavePair(ctx context.Context, p Pair) error
	// Access returns the access token stored under hash, expired or not.
	Access(ctx context.Context, hash string) (AccessToken, error)
	// Rotate consumes a refresh token and stores its successor pair.
	Rotate(ctx context.Context, r Rotation) (Pair, error)
	// RevokeAccess deletes an access token and its paired refresh token.
	// Revoking an unknown token is not an error.
	RevokeAccess(ctx context.Context, accessHash string) error
	// RevokeUser deletes every token of a user and returns how many access
	// tokens were removed.
	RevokeUser(ctx context.Context, userID string) (int, error)
	// PurgeExpired removes access tokens that expired before cutoff together
	// with their refresh tokens.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
	Ping(ctx context.Context) error
}

// Hash returns the lookup key under which a plaintext token is stored.
func Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
