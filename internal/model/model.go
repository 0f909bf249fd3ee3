// Package model defines the shared Master-Struct/Dependency-Map vocabulary
// used by the Implicit-Dependency Injector (F), Master-Struct Assembler
// (G), and Dependency Resolver (H): the UnitRecord type of spec.md §3.2 and
// the relation-kind vocabulary of spec.md §3.3.
package model

import "github.com/trly/sysdmap/internal/unitfile"

// RelationKind names one of the forward or reverse relation edges of
// spec.md §3.3. Ordering (Before/After) and aliasing are also represented
// as RelationKind values for uniformity, though aliasing never appears in
// the dependency graph as an independent node.
type RelationKind string

// Requirement relations (no inherent ordering), forward direction.
const (
	Wants              RelationKind = "Wants"
	Requires           RelationKind = "Requires"
	Requisite          RelationKind = "Requisite"
	BindsTo            RelationKind = "BindsTo"
	PartOf             RelationKind = "PartOf"
	Upholds            RelationKind = "Upholds"
	Conflicts          RelationKind = "Conflicts"
	OnFailure          RelationKind = "OnFailure"
	OnSuccess          RelationKind = "OnSuccess"
	PropagatesReloadTo RelationKind = "PropagatesReloadTo"
	PropagatesStopTo   RelationKind = "PropagatesStopTo"
	JoinsNamespaceOf   RelationKind = "JoinsNamespaceOf"
	Triggers           RelationKind = "Triggers"
)

// Requirement relations, reverse direction.
const (
	WantedBy             RelationKind = "WantedBy"
	RequiredBy           RelationKind = "RequiredBy"
	RequisiteOf          RelationKind = "RequisiteOf"
	BoundBy              RelationKind = "BoundBy"
	ConsistsOf           RelationKind = "ConsistsOf"
	UpheldBy             RelationKind = "UpheldBy"
	ReloadPropagatedFrom RelationKind = "ReloadPropagatedFrom"
	StopPropagatedFrom   RelationKind = "StopPropagatedFrom"
	TriggeredByOnFailure RelationKind = "TriggeredByOnFailure"
	TriggeredByOnSuccess RelationKind = "TriggeredByOnSuccess"
	TriggeredBy          RelationKind = "TriggeredBy"
)

// Ordering relations.
const (
	Before RelationKind = "Before"
	After  RelationKind = "After"
)

// Aliasing relations — not dependencies; never traversed.
const (
	AliasedBy RelationKind = "aliased_by"
	AliasOf   RelationKind = "alias_of"
)

// reverseOf maps every forward relation to its reverse, per the table in
// spec.md §4.F. Conflicts is symmetric and is its own reverse.
var reverseOf = map[RelationKind]RelationKind{
	Wants:              WantedBy,
	Requires:           RequiredBy,
	Requisite:          RequisiteOf,
	BindsTo:            BoundBy,
	PartOf:             ConsistsOf,
	Upholds:            UpheldBy,
	Conflicts:          Conflicts,
	PropagatesReloadTo: ReloadPropagatedFrom,
	PropagatesStopTo:   StopPropagatedFrom,
	OnFailure:          TriggeredByOnFailure,
	OnSuccess:          TriggeredByOnSuccess,
	Triggers:           TriggeredBy,
	Before:             After,
	After:              Before,
}

// ReverseOf returns the reverse relation kind for kind, and whether kind
// has one. Before/After report each other as reverse, but the implicit
// injector derives no reverse for ordering edges: they are recorded only
// on the unit that declares them.
func ReverseOf(kind RelationKind) (RelationKind, bool) {
	r, ok := reverseOf[kind]
	return r, ok
}

// Enrichment is the optional artifact enricher's output for one Exec*=
// command line, per spec.md §6.5. A hook that declines to enrich a path
// (or whose result is never requested because no path could be resolved
// under the filesystem root) leaves this at its zero value.
type Enrichment struct {
	Libraries []string `json:"libraries,omitempty"`
	Strings   []string `json:"strings,omitempty"`
	FileHash  string   `json:"file_hash,omitempty"`
}

// Edge is one relation instance with full provenance, per spec.md §3.3.
type Edge struct {
	Target  string       `json:"target"`
	Kind    RelationKind `json:"kind"`
	Origin  string       `json:"origin"`
	Section string       `json:"section"`
}

// UnitRecord is one entry of the Master Structure, per spec.md §3.2.
type UnitRecord struct {
	CanonicalName string                    `json:"canonical_name"`
	Type          string                    `json:"type"`
	SourcePath    string                    `json:"source_path,omitempty"`
	IsTemplate    bool                      `json:"is_template"`
	InstanceName  string                    `json:"instance_name,omitempty"`
	Aliases       []string                  `json:"aliases"`
	Dropins       []string                  `json:"dropins"`
	Directives    unitfile.SectionMap       `json:"directives"`
	Relations     map[RelationKind][]string `json:"relations"`
	OverriddenBy  []string                  `json:"overridden_by,omitempty"`
	Masked        bool                      `json:"masked,omitempty"`
	NotFound      bool                      `json:"not_found,omitempty"`
	Warnings      []string                  `json:"warnings,omitempty"`

	// Enrichments maps a raw Exec*= command line to the artifact
	// enricher's output for its resolved executable path, per spec.md
	// §6.5. Absent when the assembler is given a nil registry or no path
	// resolved; a registry with no enricher for a path records an empty
	// Enrichment for it.
	Enrichments map[string]Enrichment `json:"enrichments,omitempty"`

	// Edges carries full per-relation provenance (source is implicit —
	// this record's own CanonicalName), used by the resolver to label DM
	// edges with kind/origin/section. It is serialized so that a resolver
	// run over a read-back MS sees the same edges. Relations is the
	// flattened view of the same data.
	Edges []Edge `json:"edges"`
}

// Meta carries the top-level metadata of an MS or DM artifact, per spec.md
// §6.2/§6.3.
type Meta struct {
	RootPath    string   `json:"root_path,omitempty"`
	MSPath      string   `json:"ms_path,omitempty"`
	GeneratedAt string   `json:"generated_at"`
	ToolVersion string   `json:"tool_version"`
	Warnings    []string `json:"warnings,omitempty"`
}

// MS is the Master Structure artifact of spec.md §3.4/§6.2.
type MS struct {
	Units map[string]*UnitRecord `json:"units"`
	Meta  Meta                   `json:"meta"`
}

// DMNode is one entry of a Dependency Map, per spec.md §3.5/§6.3.
type DMNode struct {
	Forward  []Edge `json:"forward"`
	Backward []Edge `json:"backward"`
	Masked   bool   `json:"masked,omitempty"`
	NotFound bool   `json:"not_found,omitempty"`
}

// ReachedVia is one entry of the DM's discovery-provenance list: the first
// edge by which a node was reached from the root, per spec.md §4.H. Source
// is the already-reached node whose edge Via led to Target, so following
// Source links back to the root reconstructs the discovery path.
type ReachedVia struct {
	Target string `json:"target"`
	Source string `json:"source"`
	Via    Edge   `json:"via"`
	Depth  int    `json:"depth"`
}

// DM is the Dependency Map artifact of spec.md §3.5/§6.3.
type DM struct {
	Root       string            `json:"root"`
	DepthLimit int               `json:"depth_limit,omitempty"`
	Nodes      map[string]DMNode `json:"nodes"`
	ReachedVia []ReachedVia      `json:"reached_via"`
	Meta       Meta              `json:"meta"`
}

// NewUnitRecord returns an empty record for the given canonical name.
func NewUnitRecord(canonicalName, typ string) *UnitRecord {
	return &UnitRecord{
		CanonicalName: canonicalName,
		Type:          typ,
		Relations:     make(map[RelationKind][]string),
	}
}

// AddEdge appends an edge to the record if the (kind, target) pair is not
// already present, preserving first-seen order, and mirrors it into
// Relations for serialization.
func (u *UnitRecord) AddEdge(kind RelationKind, target, origin, section string) {
	for _, existing := range u.Relations[kind] {
		if existing == target {
			return
		}
	}
	u.Relations[kind] = append(u.Relations[kind], target)
	u.Edges = append(u.Edges, Edge{Target: target, Kind: kind, Origin: origin, Section: section})
}
