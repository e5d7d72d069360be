package flows

import (
	"context"
	"errors"
)

// UserRecord is the flow-local view of a directory user.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
}

// DirectoryDeps are the directory lookups shared by every flow. NotFound is
// the sentinel the directory wraps when a user does not exist.
type DirectoryDeps struct {
	FindByEmail    func(context.Context, string) (UserRecord, error)
	FindByUsername func(context.Context, string) (UserRecord, error)
	FindByID       func(context.Context, string) (UserRecord, error)
	NotFound       error
}

func (d DirectoryDeps) isNotFound(err error) bool {
	return d.NotFound != nil && errors.Is(err, d.NotFound)
}

// ResolveIdentifier maps an identifier that is either an email or a username
// to a user. An email hit is re-resolved by its username because credentials
// are checked against the username record; an email miss falls back to a
// username lookup of the raw identifier.
func ResolveIdentifier(ctx context.Context, identifier string, deps DirectoryDeps) (UserRecord, error) {
	byEmail, err := deps.FindByEmail(ctx, identifier)
	switch {
	case err == nil:
		return deps.FindByUsername(ctx, byEmail.Username)
	case deps.isNotFound(err):
		return deps.FindByUsername(ctx, identifier)
	default:
		return UserRecord{}, err
	}
}
