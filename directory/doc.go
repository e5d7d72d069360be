// Package directory provides goGrant.UserDirectory and goGrant.GroupStore
// implementations: Memory for tests and examples, and SQL for SQLite or
// PostgreSQL databases migrated by internal/sqldb.
//
// Both match emails case-insensitively and usernames exactly. Lookups that
// miss return an error wrapping goGrant.ErrUserNotFound.
package directory
