package pathresolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func TestSearchPathsPrecedenceOrder(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"usr/lib/systemd/system",
		"etc/systemd/system",
		"run/systemd/system",
	)

	r := New(root)
	paths := r.SearchPaths()

	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(root, "etc/systemd/system"), paths[0])
	assert.Equal(t, filepath.Join(root, "run/systemd/system"), paths[1])
	assert.Equal(t, filepath.Join(root, "usr/lib/systemd/system"), paths[2])
}

func TestSearchPathsSkipsMissing(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "etc/systemd/system")

	r := New(root)
	paths := r.SearchPaths()

	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(root, "etc/systemd/system"), paths[0])
}

func TestSearchPathsExtra(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "etc/systemd/system", "opt/vendor/systemd")

	r := New(root, WithExtraSearchPaths("opt/vendor/systemd"))
	paths := r.SearchPaths()

	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(root, "opt/vendor/systemd"), paths[1])
}

func TestSearchPathsDedupesSymlinkedLib(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "usr/lib/systemd/system")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib/systemd"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "usr/lib/systemd/system"), filepath.Join(root, "lib/systemd/system")))

	r := New(root)
	paths := r.SearchPaths()
	assert.Len(t, paths, 1)
}
