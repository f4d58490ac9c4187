// Package migrations embeds the SQLite schema and drives golang-migrate
// against a collection database, tracking applied versions in the
// schema_migrations table golang-migrate itself manages.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlite3m "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var fs embed.FS

// Apply runs every pending migration against db, which must already be
// open. It is safe to call on every process start: a fully-migrated
// database is a no-op.
func Apply(db *sql.DB) error {
	src, err := iofs.New(fs, "sql")
	if err != nil {
		return fmt.Errorf("migrations: load embedded source: %w", err)
	}

	driver, err := sqlite3m.WithInstance(db, &sqlite3m.Config{})
	if err != nil {
		return fmt.Errorf("migrations: sqlite3 driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrations: new migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: apply: %w", err)
	}
	return nil
}
