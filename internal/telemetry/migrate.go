package telemetry

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrateUp applies every embedded migration not yet recorded in
// schema_migrations, grounded on the teacher's internal/db.MigrateUp.
func (db *DB) migrateUp() error {
	sub, err := migrationsSubFS()
	if err != nil {
		return err
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("telemetry: iofs source driver: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("telemetry: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("telemetry: migrate instance: %w", err)
	}
	// m.Close() is intentionally not called: the sqlite driver's Close
	// would close the shared *sql.DB connection this DB still owns.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("telemetry: migrate up: %w", err)
	}
	return nil
}
