// Package sqlstore implements token.Store on SQLite or PostgreSQL through
// sqlx. The schema is owned by internal/sqldb migrations.
//
// Rotation runs in one transaction and relies on the DELETE of the presented
// refresh token to pick the winner: a concurrent rotation of the same token
// blocks on the row (PostgreSQL) or the connection (SQLite) and then deletes
// nothing.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGrant/internal/sqldb"
	"github.com/MrEthical07/goGrant/token"
	"github.com/jmoiron/sqlx"
)

// Store is a SQL-backed token.Store.
type Store struct {
	db *sqlx.DB
}

// New wraps an open, migrated database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type clientRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	ClientType string `db:"client_type"`
	GrantType  string `db:"grant_type"`
	CreatedAt  int64  `db:"created_at"`
}

type accessRow struct {
	TokenHash string `db:"token_hash"`
	UserID    string `db:"user_id"`
	ClientID  string `db:"client_id"`
	Scope     string `db:"scope"`
	ExpiresAt int64  `db:"expires_at"`
	CreatedAt int64  `db:"created_at"`
}

func (r accessRow) toToken() token.AccessToken {
	return token.AccessToken{
		Hash:      r.TokenHash,
		UserID:    r.UserID,
		ClientID:  r.ClientID,
		Scope:     r.Scope,
		ExpiresAt: sqldb.FromMillis(r.ExpiresAt),
		CreatedAt: sqldb.FromMillis(r.CreatedAt),
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", token.ErrUnavailable, err)
}

func (s *Store) EnsureClient(ctx context.Context, c token.Client) (token.Client, error) {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO oauth_clients (id, name, client_type, grant_type, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name, grant_type) DO NOTHING`),
		c.ID, c.Name, string(c.Type), string(c.Grant), sqldb.ToMillis(c.CreatedAt),
	)
	if err != nil {
		return token.Client{}, unavailable(err)
	}

	var row clientRow
	err = s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT id, name, client_type, grant_type, created_at
		 FROM oauth_clients WHERE name = ? AND grant_type = ?`),
		c.Name, string(c.Grant),
	)
	if err != nil {
		return token.Client{}, unavailable(err)
	}

	return token.Client{
		ID:        row.ID,
		Name:      row.Name,
		Type:      token.ClientType(row.ClientType),
		Grant:     token.GrantType(row.GrantType),
		CreatedAt: sqldb.FromMillis(row.CreatedAt),
	}, nil
}

func (s *Store) SavePair(ctx context.Context, p token.Pair) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertPair(ctx, tx, p); err != nil {
		return unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

func insertPair(ctx context.Context, tx *sqlx.Tx, p token.Pair) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO access_tokens (token_hash, user_id, client_id, scope, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		p.Access.Hash, p.Access.UserID, p.Access.ClientID, p.Access.Scope,
		sqldb.ToMillis(p.Access.ExpiresAt), sqldb.ToMillis(p.Access.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert access token: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO refresh_tokens (token_hash, user_id, client_id, access_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		p.Refresh.Hash, p.Refresh.UserID, p.Refresh.ClientID, p.Refresh.AccessHash,
		sqldb.ToMillis(p.Refresh.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) Access(ctx context.Context, hash string) (token.AccessToken, error) {
	var row accessRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT token_hash, user_id, client_id, scope, expires_at, created_at
		 FROM access_tokens WHERE token_hash = ?`), hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token.AccessToken{}, token.ErrNotFound
		}
		return token.AccessToken{}, unavailable(err)
	}
	return row.toToken(), nil
}

type rotateRow struct {
	UserID     string         `db:"user_id"`
	ClientID   string         `db:"client_id"`
	AccessHash string         `db:"access_hash"`
	Scope      sql.NullString `db:"scope"`
	ExpiresAt  sql.NullInt64  `db:"expires_at"`
}

func (s *Store) Rotate(ctx context.Context, r token.Rotation) (token.Pair, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return token.Pair{}, unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	var old rotateRow
	err = tx.GetContext(ctx, &old, tx.Rebind(
		`SELECT r.user_id, r.client_id, r.access_hash, a.scope, a.expires_at
		 FROM refresh_tokens r
		 LEFT JOIN access_tokens a ON a.token_hash = r.access_hash
		 WHERE r.token_hash = ?`), r.RefreshHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token.Pair{}, token.ErrNotFound
		}
		return token.Pair{}, unavailable(err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM refresh_tokens WHERE token_hash = ?`), r.RefreshHash)
	if err != nil {
		return token.Pair{}, unavailable(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return token.Pair{}, unavailable(err)
	} else if n == 0 {
		return token.Pair{}, token.ErrNotFound
	}

	if !old.ExpiresAt.Valid || !r.Now.Before(sqldb.FromMillis(old.ExpiresAt.Int64)) {
		if err := tx.Commit(); err != nil {
			return token.Pair{}, unavailable(err)
		}
		return token.Pair{}, token.ErrExpired
	}

	if r.RevokeSuperseded {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM access_tokens WHERE token_hash = ?`), old.AccessHash); err != nil {
			return token.Pair{}, unavailable(err)
		}
	}

	next := token.Pair{
		Access: token.AccessToken{
			Hash:      r.NextAccessHash,
			UserID:    old.UserID,
			ClientID:  old.ClientID,
			Scope:     old.Scope.String,
			ExpiresAt: r.NextExpiresAt,
			CreatedAt: r.Now,
		},
		Refresh: token.RefreshToken{
			Hash:       r.NextRefreshHash,
			UserID:     old.UserID,
			ClientID:   old.ClientID,
			AccessHash: r.NextAccessHash,
			CreatedAt:  r.Now,
		},
	}
	if err := insertPair(ctx, tx, next); err != nil {
		return token.Pair{}, unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return token.Pair{}, unavailable(err)
	}
	return next, nil
}

func (s *Store) RevokeAccess(ctx context.Context, accessHash string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM refresh_tokens WHERE access_hash = ?`), accessHash); err != nil {
		return unavailable(err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM access_tokens WHERE token_hash = ?`), accessHash); err != nil {
		return unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) RevokeUser(ctx context.Context, userID string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM refresh_tokens WHERE user_id = ?`), userID); err != nil {
		return 0, unavailable(err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM access_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	ms := sqldb.ToMillis(cutoff)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`DELETE FROM refresh_tokens WHERE access_hash IN (
		   SELECT token_hash FROM access_tokens WHERE expires_at < ?
		 )`), ms)
	if err != nil {
		return 0, unavailable(err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM access_tokens WHERE expires_at < ?`), ms)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

var _ token.Store = (*Store)(nil)

