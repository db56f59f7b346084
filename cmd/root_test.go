package cmd

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karbon0x/clientdb/internal/source"
)

func TestSeed_PopulatesDatabase(t *testing.T) {
	cfg.DBPath = filepath.Join(t.TempDir(), "tasks.db")
	seedCmd.SetOut(io.Discard)

	require.NoError(t, runSeed(seedCmd, nil))

	db, err := source.OpenReadOnly(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&n))
	require.Equal(t, len(demoTasks), n)
}

func TestSeed_RerunInsertsFreshBatch(t *testing.T) {
	cfg.DBPath = filepath.Join(t.TempDir(), "tasks.db")
	seedCmd.SetOut(io.Discard)

	require.NoError(t, runSeed(seedCmd, nil))
	require.NoError(t, runSeed(seedCmd, nil))

	db, err := source.OpenReadOnly(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&n))
	require.Equal(t, 2*len(demoTasks), n)
}

func TestNullable(t *testing.T) {
	require.Nil(t, nullable(""))
	require.Equal(t, any("alice"), nullable("alice"))
}
