package mstruct

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trly/sysdmap/internal/enrich"
	"github.com/trly/sysdmap/internal/model"
)

type fakeEnricher struct{}

func (fakeEnricher) Enrich(context.Context, string) (model.Enrichment, error) {
	return model.Enrichment{FileHash: "deadbeef"}, nil
}

func TestExecPathFromCommandLine(t *testing.T) {
	assert.Equal(t, "/bin/foo", execPathFromCommandLine("/bin/foo --flag"))
	assert.Equal(t, "/bin/foo", execPathFromCommandLine("-/bin/foo"))
	assert.Equal(t, "/bin/foo", execPathFromCommandLine("@/bin/foo argv0"))
	assert.Equal(t, "", execPathFromCommandLine("relative-binary"))
	assert.Equal(t, "", execPathFromCommandLine(""))
}

func TestAssembleWithOptionsInvokesEnricher(t *testing.T) {
	root := t.TempDir()
	etc := filepath.Join(root, "etc/systemd/system")
	writeFile(t, filepath.Join(etc, "a.service"), "[Service]\nExecStart=/bin/a\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "a"), nil, 0o755))

	reg := enrich.NewRegistry(fakeEnricher{})
	ms, _, err := AssembleWithOptions(context.Background(), root, []string{etc}, reg)
	require.NoError(t, err)

	got := ms.Units["a.service"].Enrichments["/bin/a"]
	assert.Equal(t, "deadbeef", got.FileHash)
}

func TestAssembleWithOptionsSkipsUnresolvedPath(t *testing.T) {
	root := t.TempDir()
	etc := filepath.Join(root, "etc/systemd/system")
	writeFile(t, filepath.Join(etc, "a.service"), "[Service]\nExecStart=/bin/missing\n")

	reg := enrich.NewRegistry(fakeEnricher{})
	ms, _, err := AssembleWithOptions(context.Background(), root, []string{etc}, reg)
	require.NoError(t, err)
	assert.Empty(t, ms.Units["a.service"].Enrichments)
}
