// Package testutil provides test helpers for task database and store setup.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"

	"github.com/karbon0x/clientdb/internal/source"
)

// NewTestDB creates an in-memory SQLite database with the task schema.
// The caller is responsible for closing the database.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(source.Schema)
	require.NoError(t, err)
	return db
}
