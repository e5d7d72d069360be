// Package sqldb opens the SQL databases behind the durable token store and
// user directory and applies the embedded schema migrations.
package sqldb

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to dsn with the named driver and verifies the connection.
// SQLite handles are limited to one connection so writers never contend for
// the database lock and ":memory:" databases stay a single database.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return db, nil
}

// Migrate applies every pending migration. An up-to-date schema is not an
// error.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var m *migrate.Migrate
	switch db.DriverName() {
	case DriverSQLite:
		driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("create migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
	case DriverPostgres:
		driver, err := migratepgx.WithInstance(db.DB, &migratepgx.Config{})
		if err != nil {
			return fmt.Errorf("create migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "pgx", driver)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", db.DriverName())
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// OpenAndMigrate is Open followed by Migrate.
func OpenAndMigrate(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ToMillis and FromMillis convert between time.Time and the BIGINT
// millisecond columns used by every table.
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// either supported backend.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
