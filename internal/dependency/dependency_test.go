package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trly/sysdmap/internal/implicit"
	"github.com/trly/sysdmap/internal/model"
)

func unit(name, typ string) *model.UnitRecord {
	return model.NewUnitRecord(name, typ)
}

func TestResolveBasicChain(t *testing.T) {
	a := unit("a.service", "service")
	b := unit("b.service", "service")
	a.AddEdge(model.Requires, "b.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "b.service": b}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)

	assert.Equal(t, "a.service", dm.Root)
	assert.Contains(t, dm.Nodes, "b.service")
	require.Len(t, dm.ReachedVia, 1)
	assert.Equal(t, "b.service", dm.ReachedVia[0].Target)
	assert.Equal(t, 1, dm.ReachedVia[0].Depth)
}

func TestResolveRootNotFound(t *testing.T) {
	units := map[string]*model.UnitRecord{"a.service": unit("a.service", "service")}
	_, err := Resolve(&model.MS{Units: units}, "default.target", 0)
	assert.Error(t, err)
}

func TestResolveRootViaAlias(t *testing.T) {
	foo := unit("foo.service", "service")
	foo.Aliases = []string{"/etc/systemd/system/default.target"}
	units := map[string]*model.UnitRecord{"foo.service": foo}

	dm, err := Resolve(&model.MS{Units: units}, "default.target", 0)
	require.NoError(t, err)
	assert.Equal(t, "foo.service", dm.Root)
}

func TestResolvePreservesCycles(t *testing.T) {
	a := unit("a.service", "service")
	b := unit("b.service", "service")
	a.AddEdge(model.Requires, "b.service", "explicit", "Unit")
	b.AddEdge(model.Requires, "a.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "b.service": b}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)
	assert.Len(t, dm.Nodes, 2)
	assert.Contains(t, dm.Nodes["a.service"].Backward, model.Edge{Target: "b.service", Kind: model.RequiredBy, Origin: "reverse-of:Requires", Section: "Unit"})
}

func TestResolveMaskedNodeNotExpanded(t *testing.T) {
	a := unit("a.service", "service")
	masked := unit("masked.service", "service")
	masked.Masked = true
	masked.AddEdge(model.Requires, "unreached.service", "explicit", "Unit")
	a.AddEdge(model.Requires, "masked.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{
		"a.service":         a,
		"masked.service":    masked,
		"unreached.service": unit("unreached.service", "service"),
	}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)
	assert.Contains(t, dm.Nodes, "masked.service")
	assert.True(t, dm.Nodes["masked.service"].Masked)
	assert.NotContains(t, dm.Nodes, "unreached.service")
}

func TestResolveOrderingNeverPullsInOnItsOwn(t *testing.T) {
	a := unit("a.service", "service")
	b := unit("b.service", "service")
	a.AddEdge(model.Before, "b.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "b.service": b}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)
	assert.NotContains(t, dm.Nodes, "b.service")
}

func TestResolveOrderingRecordedOnceBothReachable(t *testing.T) {
	a := unit("a.service", "service")
	b := unit("b.service", "service")
	a.AddEdge(model.Requires, "b.service", "explicit", "Unit")
	a.AddEdge(model.Before, "b.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "b.service": b}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)
	assert.Contains(t, dm.Nodes["a.service"].Forward, model.Edge{Target: "b.service", Kind: model.Before, Origin: "explicit", Section: "Unit"})
}

func TestResolveDepthLimit(t *testing.T) {
	a := unit("a.service", "service")
	b := unit("b.service", "service")
	c := unit("c.service", "service")
	a.AddEdge(model.Requires, "b.service", "explicit", "Unit")
	b.AddEdge(model.Requires, "c.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "b.service": b, "c.service": c}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 1)
	require.NoError(t, err)
	assert.Contains(t, dm.Nodes, "b.service")
	assert.NotContains(t, dm.Nodes, "c.service")
}

// TestResolveTriggersPullsActivatedServiceIntoClosure exercises spec.md
// §4.H step 4's closure set: a reached .socket unit's Triggers edge to its
// matched service must pull that service into the DM even though it is
// otherwise unreferenced, since Triggers is an activation-chain edge, not
// a mere ordering hint like Before.
func TestResolveTriggersPullsActivatedServiceIntoClosure(t *testing.T) {
	sock := unit("foo.socket", "socket")
	svc := unit("foo.service", "service")
	sock.AddEdge(model.Before, "foo.service", "implicit:socket-triggers", "Unit")
	sock.AddEdge(model.Triggers, "foo.service", "implicit:socket-triggers", "Unit")
	units := map[string]*model.UnitRecord{"foo.socket": sock, "foo.service": svc}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "foo.socket", 0)
	require.NoError(t, err)
	assert.Contains(t, dm.Nodes, "foo.service")
}

func TestResolveConflictsRecordedNotTraversed(t *testing.T) {
	a := unit("a.service", "service")
	c := unit("c.service", "service")
	a.AddEdge(model.Conflicts, "c.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "c.service": c}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)
	assert.NotContains(t, dm.Nodes, "c.service")
	assert.Contains(t, dm.Nodes["a.service"].Forward, model.Edge{Target: "c.service", Kind: model.Conflicts, Origin: "explicit", Section: "Unit"})
}

// TestResolveConflictsRecordedEvenWhenTargetUnreached exercises spec.md's
// S6 scenario directly: a.service Requires=b.service, b.service
// Conflicts=c.service. The DM must contain a and b, must record the
// Conflicts edge to c on b's forward list, but must not add c as a node.
func TestResolveConflictsRecordedEvenWhenTargetUnreached(t *testing.T) {
	a := unit("a.service", "service")
	b := unit("b.service", "service")
	c := unit("c.service", "service")
	a.AddEdge(model.Requires, "b.service", "explicit", "Unit")
	b.AddEdge(model.Conflicts, "c.service", "explicit", "Unit")
	units := map[string]*model.UnitRecord{"a.service": a, "b.service": b, "c.service": c}
	implicit.ComputeReverseEdges(units)

	dm, err := Resolve(&model.MS{Units: units}, "a.service", 0)
	require.NoError(t, err)
	assert.Contains(t, dm.Nodes, "a.service")
	assert.Contains(t, dm.Nodes, "b.service")
	assert.NotContains(t, dm.Nodes, "c.service")
	assert.Contains(t, dm.Nodes["b.service"].Forward, model.Edge{Target: "c.service", Kind: model.Conflicts, Origin: "explicit", Section: "Unit"})
}
