package goGrant

import (
	"context"
	"time"

	"github.com/MrEthical07/goGrant/scope"
	"github.com/MrEthical07/goGrant/token"
)

// UserStatus is the directory-side account state.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

// User is an account as the directory stores it. PasswordHash is a PHC
// argon2id string or a legacy bcrypt/PBKDF2 hash; never plaintext.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Verified     bool
	Status       UserStatus
}

// Active reports whether the account may authenticate. An empty status is
// treated as active so directories without a status column work unchanged.
func (u User) Active() bool {
	return u.Status == "" || u.Status == StatusActive
}

// Role is a named permission set attached to users by a GroupStore.
type Role struct {
	Name        string
	Permissions []string
}

// Has reports whether the role carries perm.
func (r Role) Has(perm string) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// UserDirectory is the account store the engine authenticates against.
//
// Lookups return ErrUserNotFound (possibly wrapped) for unknown users. Any
// other error is treated as a directory outage.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// PasswordHashSwapper is implemented by directories that can replace a
// password hash only while it still equals current. A mismatch returns
// ErrPasswordHashChanged. When the directory implements it the engine uses
// it for reset confirmation and hash upgrades instead of SetPasswordHash.
type PasswordHashSwapper interface {
	SwapPasswordHash(ctx context.Context, id, current, hash string) error
}

// Notifier delivers password reset mail.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// GroupStore resolves the roles attached to a user.
type GroupStore interface {
	RolesFor(ctx context.Context, userID string) ([]Role, error)
}

// TokenTypeBearer is the only token type the engine issues.
const TokenTypeBearer = "Bearer"

// TokenPair is the plaintext result of issuance or refresh. The plaintext
// tokens exist only here; stores keep digests.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the access token lifetime in whole seconds.
	ExpiresIn int64
	ExpiresAt time.Time
	Scope     string
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	User   User
	Tokens TokenPair
}

// AuthResult describes an authorized bearer: its owner, the stored token and
// the parsed scope set.
type AuthResult struct {
	User   User
	Token  token.AccessToken
	Scopes scope.Set
}
