package flows

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// Reset mail content.
const (
	ResetMailSubject = "Password Reset Request"
	ResetMailIntro   = "Click the link below to reset your password:\n"
)

// ResetSigner derives and checks reset tickets.
type ResetSigner interface {
	Make(userID, passwordHash string, now time.Time) (string, error)
	Check(userID, passwordHash, token string, now time.Time) error
}

type ResetRequestFailureKind int

const (
	ResetRequestFailureNone ResetRequestFailureKind = iota
	ResetRequestFailureEmpty
	ResetRequestFailureRateLimited
	ResetRequestFailureLimiter
	ResetRequestFailureUserNotFound
	ResetRequestFailureDirectory
	ResetRequestFailureTicket
	ResetRequestFailureSend
)

type ResetRequestResult struct {
	Failure ResetRequestFailureKind
	Err     error
	UserID  string
}

type ResetConfirmFailureKind int

const (
	ResetConfirmFailureNone ResetConfirmFailureKind = iota
	ResetConfirmFailureRateLimited
	ResetConfirmFailureLimiter
	ResetConfirmFailureUID
	ResetConfirmFailureUserNotFound
	ResetConfirmFailureDirectory
	ResetConfirmFailureTicket
	ResetConfirmFailurePolicy
	ResetConfirmFailureHash
	ResetConfirmFailureUpdate
	ResetConfirmFailureStale
)

type ResetConfirmResult struct {
	Failure ResetConfirmFailureKind
	Err     error
	UserID  string
	Revoked int
}

type PasswordResetDeps struct {
	Directory DirectoryDeps
	Signer    ResetSigner
	Now       func() time.Time
	ResetURL  string

	CheckRequestRate func(context.Context, string) error
	CheckConfirmRate func(context.Context, string) error
	RateLimited      error

	EncodeUID func(string) string
	DecodeUID func(string) (string, error)

	Send func(ctx context.Context, to, subject, body string) error

	MinPasswordLength int
	HashPassword      func(string) (string, error)
	SwapPasswordHash  func(ctx context.Context, id, current, hash string) error
	HashChanged       error

	RevokeTokens bool
	RevokeUser   func(context.Context, string) (int, error)

	Warn func(string, ...any)
}

func (d PasswordResetDeps) warn(msg string, args ...any) {
	if d.Warn != nil {
		d.Warn(msg, args...)
	}
}

// BuildResetURL appends uid and token as query parameters to base.
func BuildResetURL(base, uid, token string) string {
	q := url.Values{}
	q.Set("uid", uid)
	q.Set("token", token)

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// RunRequestPasswordReset mails a reset link to the user owning email.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) ResetRequestResult {
	email = strings.TrimSpace(email)
	if email == "" {
		return ResetRequestResult{Failure: ResetRequestFailureEmpty}
	}

	if deps.CheckRequestRate != nil {
		if err := deps.CheckRequestRate(ctx, email); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return ResetRequestResult{Failure: ResetRequestFailureRateLimited, Err: err}
			}
			return ResetRequestResult{Failure: ResetRequestFailureLimiter, Err: err}
		}
	}

	user, err := deps.Directory.FindByEmail(ctx, email)
	if err != nil {
		if deps.Directory.isNotFound(err) {
			return ResetRequestResult{Failure: ResetRequestFailureUserNotFound, Err: err}
		}
		return ResetRequestResult{Failure: ResetRequestFailureDirectory, Err: err}
	}

	tok, err := deps.Signer.Make(user.ID, user.PasswordHash, deps.Now())
	if err != nil {
		return ResetRequestResult{Failure: ResetRequestFailureTicket, Err: err, UserID: user.ID}
	}

	link := BuildResetURL(deps.ResetURL, deps.EncodeUID(user.ID), tok)
	if err := deps.Send(ctx, user.Email, ResetMailSubject, ResetMailIntro+link); err != nil {
		return ResetRequestResult{Failure: ResetRequestFailureSend, Err: err, UserID: user.ID}
	}

	return ResetRequestResult{UserID: user.ID}
}

// RunConfirmPasswordReset checks a ticket and replaces the password. The new
// hash is written only over the hash the ticket was checked against, so of
// several confirms racing on one ticket at most one succeeds.
func RunConfirmPasswordReset(ctx context.Context, uid, tok, newPassword string, deps PasswordResetDeps) ResetConfirmResult {
	if deps.CheckConfirmRate != nil {
		if err := deps.CheckConfirmRate(ctx, uid); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return ResetConfirmResult{Failure: ResetConfirmFailureRateLimited, Err: err}
			}
			return ResetConfirmResult{Failure: ResetConfirmFailureLimiter, Err: err}
		}
	}

	userID, err := deps.DecodeUID(uid)
	if err != nil {
		return ResetConfirmResult{Failure: ResetConfirmFailureUID, Err: err}
	}

	user, err := deps.Directory.FindByID(ctx, userID)
	if err != nil {
		if deps.Directory.isNotFound(err) {
			return ResetConfirmResult{Failure: ResetConfirmFailureUserNotFound, Err: err}
		}
		return ResetConfirmResult{Failure: ResetConfirmFailureDirectory, Err: err}
	}

	if err := deps.Signer.Check(user.ID, user.PasswordHash, tok, deps.Now()); err != nil {
		return ResetConfirmResult{Failure: ResetConfirmFailureTicket, Err: err, UserID: user.ID}
	}

	if len(newPassword) < deps.MinPasswordLength {
		return ResetConfirmResult{Failure: ResetConfirmFailurePolicy, UserID: user.ID}
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return ResetConfirmResult{Failure: ResetConfirmFailureHash, Err: err, UserID: user.ID}
	}
	if err := deps.SwapPasswordHash(ctx, user.ID, user.PasswordHash, hash); err != nil {
		if deps.HashChanged != nil && errors.Is(err, deps.HashChanged) {
			return ResetConfirmResult{Failure: ResetConfirmFailureStale, Err: err, UserID: user.ID}
		}
		if deps.Directory.isNotFound(err) {
			return ResetConfirmResult{Failure: ResetConfirmFailureUserNotFound, Err: err, UserID: user.ID}
		}
		return ResetConfirmResult{Failure: ResetConfirmFailureUpdate, Err: err, UserID: user.ID}
	}

	revoked := 0
	if deps.RevokeTokens && deps.RevokeUser != nil {
		n, err := deps.RevokeUser(ctx, user.ID)
		if err != nil {
			deps.warn("token revocation after password reset failed", "user_id", user.ID, "error", err)
		}
		revoked = n
	}

	return ResetConfirmResult{UserID: user.ID, Revoked: revoked}
}
