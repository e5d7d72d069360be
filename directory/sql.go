package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/sqldb"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQL is a directory over the users, roles and user_roles tables.
type SQL struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQL wraps an open, migrated database handle.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, now: time.Now}
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Verified     bool   `db:"is_verified"`
	Status       string `db:"status"`
}

func (r userRow) toUser() goGrant.User {
	return goGrant.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Verified:     r.Verified,
		Status:       goGrant.UserStatus(r.Status),
	}
}

const selectUser = `SELECT id, username, email, password_hash, is_verified, status FROM users `

// CreateUser inserts u. An empty ID gets a fresh UUID and an empty status
// becomes StatusActive. Emails are stored lower-cased.
func (s *SQL) CreateUser(ctx context.Context, u goGrant.User) (goGrant.User, error) {
	if u.Username == "" || u.Email == "" {
		return goGrant.User{}, errors.New("directory: username and email are required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = goGrant.StatusActive
	}
	u.Email = normalizeEmail(u.Email)
	now := sqldb.ToMillis(s.now())

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (id, username, email, password_hash, is_verified, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.Email, u.PasswordHash, u.Verified, string(u.Status), now, now,
	)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return goGrant.User{}, ErrDuplicateUser
		}
		return goGrant.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *SQL) findOne(ctx context.Context, by, where string, arg any) (goGrant.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectUser+where), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goGrant.User{}, notFound(by)
		}
		return goGrant.User{}, fmt.Errorf("find user by %s: %w", by, err)
	}
	return row.toUser(), nil
}

func (s *SQL) FindByEmail(ctx context.Context, email string) (goGrant.User, error) {
	return s.findOne(ctx, "email", `WHERE email = ?`, normalizeEmail(email))
}

func (s *SQL) FindByUsername(ctx context.Context, username string) (goGrant.User, error) {
	return s.findOne(ctx, "username", `WHERE username = ?`, username)
}

func (s *SQL) FindByID(ctx context.Context, id string) (goGrant.User, error) {
	return s.findOne(ctx, "id", `WHERE id = ?`, id)
}

func (s *SQL) SetPasswordHash(ctx context.Context, id, hash string) error {
	return s.update(ctx, `password_hash = ?`, hash, id)
}

// SwapPasswordHash replaces the hash only while it still equals current. A
// miss is told apart from an unknown id by a follow-up lookup.
func (s *SQL) SwapPasswordHash(ctx context.Context, id, current, hash string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND password_hash = ?`),
		hash, sqldb.ToMillis(s.now()), id, current,
	)
	if err != nil {
		return fmt.Errorf("swap password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("swap password hash: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return goGrant.ErrPasswordHashChanged
}

// SetStatus activates or deactivates an account.
func (s *SQL) SetStatus(ctx context.Context, id string, status goGrant.UserStatus) error {
	return s.update(ctx, `status = ?`, string(status), id)
}

func (s *SQL) update(ctx context.Context, set string, value any, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users SET `+set+`, updated_at = ? WHERE id = ?`),
		value, sqldb.ToMillis(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return notFound("id")
	}
	return nil
}

// PutRole defines or replaces a role. Permissions are stored space separated.
func (s *SQL) PutRole(ctx context.Context, role goGrant.Role) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO roles (name, permissions) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET permissions = excluded.permissions`),
		role.Name, strings.Join(role.Permissions, " "),
	)
	if err != nil {
		return fmt.Errorf("put role: %w", err)
	}
	return nil
}

// AssignRole attaches a defined role to a user. Assigning twice is a no-op.
func (s *SQL) AssignRole(ctx context.Context, userID, roleName string) error {
	var exists int
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT COUNT(*) FROM roles WHERE name = ?`), roleName)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
	}
	if _, err := s.FindByID(ctx, userID); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO user_roles (user_id, role_name) VALUES (?, ?)
		 ON CONFLICT (user_id, role_name) DO NOTHING`),
		userID, roleName,
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

type roleRow struct {
	Name        string `db:"name"`
	Permissions string `db:"permissions"`
}

func (s *SQL) RolesFor(ctx context.Context, userID string) ([]goGrant.Role, error) {
	var rows []roleRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT r.name, r.permissions
		 FROM user_roles ur JOIN roles r ON r.name = ur.role_name
		 WHERE ur.user_id = ?
		 ORDER BY r.name`), userID)
	if err != nil {
		return nil, fmt.Errorf("roles for user: %w", err)
	}

	out := make([]goGrant.Role, 0, len(rows))
	for _, r := range rows {
		out = append(out, goGrant.Role{Name: r.Name, Permissions: strings.Fields(r.Permissions)})
	}
	return out, nil
}

var (
	_ goGrant.UserDirectory       = (*SQL)(nil)
	_ goGrant.PasswordHashSwapper = (*SQL)(nil)
	_ goGrant.GroupStore          = (*SQL)(nil)
)
