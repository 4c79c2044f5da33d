package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/MrJamesThe3rd/khata/internal/config"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending up migration for the driver. migrationURL uses
// the pgx5:// or sqlite3:// scheme.
func Migrate(driver, migrationURL string) error {
	m, err := newMigrate(driver, migrationURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}

// Version reports the applied schema version.
func Version(driver, migrationURL string) (uint, bool, error) {
	m, err := newMigrate(driver, migrationURL)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}

func newMigrate(driver, migrationURL string) (*migrate.Migrate, error) {
	dir := "migrations/postgres"
	if driver == config.DriverSQLite {
		dir = "migrations/sqlite"
	}

	src, err := iofs.New(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL)
	if err != nil {
		return nil, fmt.Errorf("initialising migrations: %w", err)
	}

	return m, nil
}
