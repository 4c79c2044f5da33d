// Package testutil opens migrated databases for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/database"
)

// NewSQLite returns a pool over a fresh, fully migrated SQLite file that is
// removed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "khata.db")

	require.NoError(t, database.Migrate(config.DriverSQLite, "sqlite3://"+path))

	db, err := database.New(config.DriverSQLite, path+"?_foreign_keys=on&_busy_timeout=5000")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}
