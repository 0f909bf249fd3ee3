package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trly/sysdmap/internal/artifact"
	"github.com/trly/sysdmap/internal/model"
)

func TestStatsCommandRunRequiresAPath(t *testing.T) {
	c := &StatsCommand{}
	err := c.Run(StatsOptions{})
	assert.Error(t, err)
}

func TestStatsCommandRunReadsMSAndDM(t *testing.T) {
	dir := t.TempDir()
	msPath := filepath.Join(dir, "snap_ms.json")
	dmPath := filepath.Join(dir, "snap_dm.json")

	u := model.NewUnitRecord("a.service", "service")
	ms := &model.MS{Units: map[string]*model.UnitRecord{"a.service": u}}
	require.NoError(t, artifact.WriteMS(msPath, ms, false))

	dm := &model.DM{Root: "a.service", Nodes: map[string]model.DMNode{"a.service": {}}}
	require.NoError(t, artifact.WriteDM(dmPath, dm, false))

	c := &StatsCommand{}
	err := c.Run(StatsOptions{MSPath: msPath, DMPath: dmPath})
	assert.NoError(t, err)
}

func TestCountBackEdgeCyclesDetectsTwoNodeCycle(t *testing.T) {
	dm := &model.DM{
		Root: "a.service",
		Nodes: map[string]model.DMNode{
			"a.service": {Forward: []model.Edge{{Kind: model.Requires, Target: "b.service"}}},
			"b.service": {Forward: []model.Edge{{Kind: model.Requires, Target: "a.service"}}},
		},
		ReachedVia: []model.ReachedVia{{Target: "b.service", Depth: 1}},
	}
	assert.Equal(t, 1, countBackEdgeCycles(dm))
}
