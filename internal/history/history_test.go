package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRunThenLatestForRoot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	older := Run{
		RootPath: "/fx", TargetUnit: "default.target", DepthLimit: 0,
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ToolVersion: "0.1.0", OutputPrefix: "snap-old", UnitCount: 3, EdgeCount: 5, WarningCount: 0,
	}
	newer := Run{
		RootPath: "/fx", TargetUnit: "default.target", DepthLimit: 0,
		GeneratedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		ToolVersion: "0.1.0", OutputPrefix: "snap-new", UnitCount: 4, EdgeCount: 6, WarningCount: 1,
	}

	_, err = store.RecordRun(older)
	require.NoError(t, err)
	_, err = store.RecordRun(newer)
	require.NoError(t, err)

	runs, err := store.LatestForRoot("/fx", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "snap-new", runs[0].OutputPrefix)
	assert.Equal(t, "snap-old", runs[1].OutputPrefix)
}

func TestLatestForRootEmptyWhenNoRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.LatestForRoot("/nowhere", 2)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
