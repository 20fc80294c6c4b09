package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intellimind/backend/internal/database"
)

func TestInitDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "test.db")

	db, err := database.InitDB(path)
	require.NoError(t, err)

	for _, table := range []string{"chats", "messages", "settings", "feedback"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
	require.NoError(t, db.Close())

	// Re-opening an already migrated database must not fail.
	db, err = database.InitDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
