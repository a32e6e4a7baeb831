// Package telemetry implements the local diagnostics store (spec.md
// §7): per-kind error counters, a rolling latency history, and a
// notification log, persisted to SQLite. This is distinct from
// internal/fieldstore, which owns the field-record file formats.
package telemetry

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the diagnostics database connection, mirroring the
// teacher's internal/db.DB embedding pattern.
type DB struct {
	*sql.DB
}

func migrationsSubFS() (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("telemetry: embedded migrations sub-filesystem: %w", err)
	}
	return sub, nil
}

// Open opens (creating if absent) the diagnostics database at path and
// applies any pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	if err := applyPragmas(conn); err != nil {
		return nil, err
	}
	db := &DB{conn}
	if err := db.migrateUp(); err != nil {
		return nil, err
	}
	return db, nil
}

func applyPragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("telemetry: exec %q: %w", p, err)
		}
	}
	return nil
}
