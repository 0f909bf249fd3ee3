// Package dependency implements the Dependency Resolver of spec.md §4.H:
// a cycle-tolerant breadth-first closure over a Master Structure, rooted at
// a chosen unit, producing a Dependency Map with forward/backward edges
// and discovery provenance.
package dependency

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/model"
)

// DefaultRoot is the root unit used when none is specified, per spec.md
// §4.H / §6.4.
const DefaultRoot = "default.target"

// closureKinds are the relation kinds followed when expanding a node's
// neighbors (spec.md §4.H step 4). Ordering (Before/After) and Conflicts
// are deliberately excluded and never pull a unit into the reachable set
// on their own (step 5/6): an ordering edge is recorded only once both
// endpoints are reachable, while a Conflicts edge is recorded even when
// its target is not.
var closureKinds = map[model.RelationKind]bool{
	model.Wants:              true,
	model.Requires:           true,
	model.Requisite:          true,
	model.BindsTo:            true,
	model.Upholds:            true,
	model.PartOf:             true,
	model.Triggers:           true,
	model.OnFailure:          true,
	model.OnSuccess:          true,
	model.PropagatesReloadTo: true,
	model.PropagatesStopTo:   true,
}

func isReverseOrigin(origin string) bool {
	return strings.HasPrefix(origin, "reverse-of:")
}

// Resolve computes the Dependency Map reachable from root within ms,
// following the closure rule of spec.md §4.H. depthLimit <= 0 means
// unbounded.
func Resolve(ms *model.MS, root string, depthLimit int) (*model.DM, error) {
	canonical, err := resolveRoot(ms, root)
	if err != nil {
		return nil, err
	}

	depth := map[string]int{canonical: 0}
	var reachedVia []model.ReachedVia

	queue := []string{canonical}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		d := depth[name]

		u, ok := ms.Units[name]
		if !ok {
			continue
		}
		if u.Masked {
			continue
		}
		if depthLimit > 0 && d >= depthLimit {
			continue
		}

		for _, e := range u.Edges {
			if !closureKinds[e.Kind] {
				continue
			}
			if _, seen := depth[e.Target]; seen {
				continue
			}
			if _, ok := ms.Units[e.Target]; !ok {
				continue
			}
			depth[e.Target] = d + 1
			reachedVia = append(reachedVia, model.ReachedVia{Target: e.Target, Source: name, Via: e, Depth: d + 1})
			queue = append(queue, e.Target)
		}
	}

	visited := make([]string, 0, len(depth))
	for name := range depth {
		visited = append(visited, name)
	}
	sort.Strings(visited)

	nodes := make(map[string]model.DMNode, len(visited))
	for _, name := range visited {
		u := ms.Units[name]
		node := model.DMNode{Masked: u.Masked, NotFound: u.NotFound}
		for _, e := range u.Edges {
			// Conflicts is recorded regardless of whether its target ended up
			// reached some other way (spec.md §4.H step 5, scenario S6); every
			// other kind (ordering included) is only recorded once its target
			// is itself in the reached set (step 6).
			if _, inSet := depth[e.Target]; !inSet && e.Kind != model.Conflicts {
				continue
			}
			if isReverseOrigin(e.Origin) {
				node.Backward = append(node.Backward, e)
			} else {
				node.Forward = append(node.Forward, e)
			}
		}
		nodes[name] = node
	}

	sort.Slice(reachedVia, func(i, j int) bool {
		if reachedVia[i].Depth != reachedVia[j].Depth {
			return reachedVia[i].Depth < reachedVia[j].Depth
		}
		return reachedVia[i].Target < reachedVia[j].Target
	})

	return &model.DM{
		Root:       canonical,
		DepthLimit: depthLimit,
		Nodes:      nodes,
		ReachedVia: reachedVia,
	}, nil
}

// resolveRoot maps a requested root name to its canonical MS key, following
// the alias table per spec.md §4.H step 1: root may itself be a symlink
// alias (e.g. "default.target" pointing at some "foo.service").
func resolveRoot(ms *model.MS, root string) (string, error) {
	if _, ok := ms.Units[root]; ok {
		return root, nil
	}

	names := make([]string, 0, len(ms.Units))
	for name := range ms.Units {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, alias := range ms.Units[name].Aliases {
			if filepath.Base(alias) == root {
				return name, nil
			}
		}
	}
	return "", &diag.RootNotFoundError{Unit: root}
}
