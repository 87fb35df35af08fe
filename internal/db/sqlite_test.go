package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "nested", "extractions.db")

	require.NoError(t, RunMigrations(dbFile))
	// a second run is a no-op
	require.NoError(t, RunMigrations(dbFile))

	conn, err := NewSQLiteDB(dbFile)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM extractions`))
	assert.Zero(t, count)

	var columns []string
	require.NoError(t, conn.Select(&columns, `SELECT name FROM pragma_table_info('extractions')`))
	assert.Contains(t, columns, "response_json")
	assert.Contains(t, columns, "completed_at")
}
