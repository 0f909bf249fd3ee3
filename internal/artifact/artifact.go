// Package artifact implements Artifact I/O (spec.md §6.2/§6.3): writing the
// Master Structure and Dependency Map as byte-stable JSON documents, and
// reading an MS document back in for a build_deps run.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/model"
)

// MSSuffix and DMSuffix are the file-extension conventions of spec.md §6.4.
const (
	MSSuffix = "_ms.json"
	DMSuffix = "_dm.json"
)

// MSPath and DMPath build the conventional output paths for a given prefix.
func MSPath(prefix string) string { return prefix + MSSuffix }
func DMPath(prefix string) string { return prefix + DMSuffix }

// WriteMS atomically writes an MS document to path, sorting its unit keys'
// array-valued fields for deterministic output (spec.md §8.3). Fails with
// an *diag.OutputCollisionError if path already exists and force is false.
func WriteMS(path string, ms *model.MS, force bool) error {
	sortMS(ms)
	data, err := json.MarshalIndent(ms, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling MS artifact: %w", err)
	}
	return atomicWrite(path, data, force)
}

// WriteDM atomically writes a DM document to path, under the same
// collision and determinism rules as WriteMS.
func WriteDM(path string, dm *model.DM, force bool) error {
	sortDM(dm)
	data, err := json.MarshalIndent(dm, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling DM artifact: %w", err)
	}
	return atomicWrite(path, data, force)
}

// ReadMS parses an MS document from path, for a build_deps run that takes
// a previously written MS as input rather than a filesystem root. A
// malformed document yields an *diag.MalformedMSInputError (fatal, per
// spec.md §7).
func ReadMS(path string) (*model.MS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.MalformedMSInputError{Path: path, Cause: err}
	}
	var ms model.MS
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil, &diag.MalformedMSInputError{Path: path, Cause: err}
	}
	return &ms, nil
}

// ReadDM parses a DM document from path, for inspection tooling that wants
// to report on a previously written dependency map without recomputing it.
func ReadDM(path string) (*model.DM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.MalformedMSInputError{Path: path, Cause: err}
	}
	var dm model.DM
	if err := json.Unmarshal(data, &dm); err != nil {
		return nil, &diag.MalformedMSInputError{Path: path, Cause: err}
	}
	return &dm, nil
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename, so a reader never observes a partially written
// artifact. Mirrors the teacher's temp-file-plus-rename pattern, simplified
// (no hash-based change detection: artifacts are always freshly generated,
// never incrementally updated).
func atomicWrite(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return &diag.OutputCollisionError{Path: path}
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file to %q: %w", path, err)
	}
	return nil
}

// sortMS sorts the set-valued fields of every unit record ascending
// (aliases, overridden_by, warnings, relation targets, and edges by kind
// then target), so two runs over the same input tree produce byte-identical
// JSON. Dropins keep their merge order and directive values their file
// order, since both orders carry meaning.
func sortMS(ms *model.MS) {
	for _, u := range ms.Units {
		sort.Strings(u.Aliases)
		sort.Strings(u.OverriddenBy)
		sort.Strings(u.Warnings)
		sortEdges(u.Edges)
		for kind, targets := range u.Relations {
			sorted := append([]string(nil), targets...)
			sort.Strings(sorted)
			u.Relations[kind] = sorted
		}
	}
	sort.Strings(ms.Meta.Warnings)
}

// sortDM sorts every edge list of every node ascending by (kind, target),
// and the reached_via list ascending by (depth, target), for deterministic
// output.
func sortDM(dm *model.DM) {
	for _, node := range dm.Nodes {
		sortEdges(node.Forward)
		sortEdges(node.Backward)
	}
	sort.Slice(dm.ReachedVia, func(i, j int) bool {
		if dm.ReachedVia[i].Depth != dm.ReachedVia[j].Depth {
			return dm.ReachedVia[i].Depth < dm.ReachedVia[j].Depth
		}
		return dm.ReachedVia[i].Target < dm.ReachedVia[j].Target
	})
	sort.Strings(dm.Meta.Warnings)
}

func sortEdges(edges []model.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Kind != edges[j].Kind {
			return edges[i].Kind < edges[j].Kind
		}
		return edges[i].Target < edges[j].Target
	})
}
