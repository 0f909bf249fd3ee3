package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trly/sysdmap/internal/artifact"
	"github.com/trly/sysdmap/internal/config"
	"github.com/trly/sysdmap/internal/history"
)

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func TestRunBuildBothWritesBothArtifacts(t *testing.T) {
	root := t.TempDir()
	etc := filepath.Join(root, "etc/systemd/system")
	writeFile(t, filepath.Join(etc, "default.target"), "[Unit]\nRequires=a.service\n")
	writeFile(t, filepath.Join(etc, "a.service"), "[Service]\nExecStart=/bin/a\n")

	outDir := t.TempDir()
	prefix := filepath.Join(outDir, "snap")

	cfg := &config.Settings{
		Action:       config.ActionBuildBoth,
		RootPath:     root,
		TargetUnit:   "default.target",
		OutputPrefix: prefix,
	}

	res, err := Run(context.Background(), cfg, nil, nil, fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NotNil(t, res.MS)
	require.NotNil(t, res.DM)

	assert.Contains(t, res.MS.Units, "a.service")
	assert.Equal(t, "default.target", res.DM.Root)
	assert.Equal(t, ToolVersion, res.MS.Meta.ToolVersion)
	assert.Equal(t, "2026-01-01T00:00:00Z", res.MS.Meta.GeneratedAt)

	_, err = os.Stat(artifact.MSPath(prefix))
	assert.NoError(t, err)
	_, err = os.Stat(artifact.DMPath(prefix))
	assert.NoError(t, err)
}

func TestRunBuildDepsReadsMSInput(t *testing.T) {
	root := t.TempDir()
	etc := filepath.Join(root, "etc/systemd/system")
	writeFile(t, filepath.Join(etc, "default.target"), "[Unit]\nRequires=a.service\n")
	writeFile(t, filepath.Join(etc, "a.service"), "[Service]\nExecStart=/bin/a\n")

	outDir := t.TempDir()
	buildCfg := &config.Settings{
		Action: config.ActionBuildMaster, RootPath: root,
		TargetUnit: "default.target", OutputPrefix: filepath.Join(outDir, "snap"),
	}
	_, err := Run(context.Background(), buildCfg, nil, nil, fixedClock(time.Now()))
	require.NoError(t, err)

	depsCfg := &config.Settings{
		Action:       config.ActionBuildDeps,
		MSPath:       artifact.MSPath(buildCfg.OutputPrefix),
		TargetUnit:   "default.target",
		OutputPrefix: filepath.Join(outDir, "snap2"),
	}
	res, err := Run(context.Background(), depsCfg, nil, nil, fixedClock(time.Now()))
	require.NoError(t, err)
	require.NotNil(t, res.DM)
	assert.Contains(t, res.DM.Nodes, "a.service")
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	cfg := &config.Settings{Action: config.ActionBuildMaster, OutputPrefix: "snap"}
	_, err := Run(context.Background(), cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestRunRecordsHistoryWhenStoreProvided(t *testing.T) {
	root := t.TempDir()
	etc := filepath.Join(root, "etc/systemd/system")
	writeFile(t, filepath.Join(etc, "default.target"), "[Unit]\nRequires=a.service\n")
	writeFile(t, filepath.Join(etc, "a.service"), "[Service]\nExecStart=/bin/a\n")

	outDir := t.TempDir()
	cfg := &config.Settings{
		Action: config.ActionBuildBoth, RootPath: root,
		TargetUnit: "default.target", OutputPrefix: filepath.Join(outDir, "snap"),
	}

	store, err := history.Open(filepath.Join(outDir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = Run(context.Background(), cfg, nil, store, fixedClock(time.Now()))
	require.NoError(t, err)

	runs, err := store.LatestForRoot(root, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].UnitCount)
}
