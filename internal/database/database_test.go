package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/database"
)

func TestMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "khata.db")
	url := "sqlite3://" + path

	require.NoError(t, database.Migrate(config.DriverSQLite, url))
	// Re-running is a no-op.
	require.NoError(t, database.Migrate(config.DriverSQLite, url))

	version, dirty, err := database.Version(config.DriverSQLite, url)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	db, err := database.New(config.DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"customers", "inventory_items", "ledger_entries", "pending_actions", "reminders", "item_aliases"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := database.New("mysql", "")
	assert.Error(t, err)
}
