// Package mstruct implements the Master-Struct Assembler of spec.md §4.G:
// combining path resolution, discovery, drop-in merging, alias/template
// resolution, and implicit-dependency injection into the final Master
// Structure, and enforcing the invariants of spec.md §4.G/§8.1.
package mstruct

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/discovery"
	"github.com/trly/sysdmap/internal/dropin"
	"github.com/trly/sysdmap/internal/enrich"
	"github.com/trly/sysdmap/internal/implicit"
	"github.com/trly/sysdmap/internal/model"
	"github.com/trly/sysdmap/internal/pathresolver"
	"github.com/trly/sysdmap/internal/specifier"
)

const sectionUnit = "Unit"

// explicitRelationKeys lists the directive keys in [Unit] that are read as
// explicit relation edges, per spec.md §3.3.
var explicitRelationKeys = []model.RelationKind{
	model.Wants, model.Requires, model.Requisite, model.BindsTo, model.PartOf,
	model.Upholds, model.Conflicts, model.OnFailure, model.OnSuccess,
	model.PropagatesReloadTo, model.PropagatesStopTo, model.JoinsNamespaceOf,
	model.Before, model.After,
}

// AssemblyError reports a violated Master-Struct invariant (spec.md §4.G).
type AssemblyError struct {
	Invariant string
	Detail    string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly invariant violated (%s): %s", e.Invariant, e.Detail)
}

// Assemble builds the Master Structure for every unit reachable under a
// filesystem root, across all of the root's search paths.
func Assemble(root string) (*model.MS, []diag.Warning, error) {
	resolver := pathresolver.New(root)
	return AssembleWithSearchPaths(root, resolver.SearchPaths())
}

// AssembleWithSearchPaths is Assemble with explicit search paths, exposed
// so tests (and a future --extra-search-path flag) can bypass live
// filesystem precedence detection. No artifact enricher is invoked; use
// AssembleWithOptions from internal/core to register one.
func AssembleWithSearchPaths(root string, searchPaths []string) (*model.MS, []diag.Warning, error) {
	return AssembleWithOptions(context.Background(), root, searchPaths, nil)
}

// AssembleWithOptions is AssembleWithSearchPaths with an explicit context
// (passed through to the enricher hook) and an optional enricher registry,
// invoked per spec.md §6.5 for every Exec*= command line found while
// assembling.
func AssembleWithOptions(ctx context.Context, root string, searchPaths []string, reg *enrich.Registry) (*model.MS, []diag.Warning, error) {
	var warnings []diag.Warning

	disc := discovery.Walk(root, searchPaths, &warnings)
	resolvedAliases, aliasWarnings := specifier.ResolveAliases(disc.Aliases)
	warnings = append(warnings, aliasWarnings...)

	units := make(map[string]*model.UnitRecord)

	for basename := range disc.ContentFiles {
		buildUnit(units, disc, resolvedAliases, basename, &warnings)
	}
	for _, name := range resolvedAliases.NotFoundTargets {
		getOrCreate(units, disc, resolvedAliases, name, &warnings)
	}

	for owner, entries := range disc.WantsLinks {
		ownerUnit := getOrCreate(units, disc, resolvedAliases, owner, &warnings)
		for _, entry := range entries {
			target := getOrCreate(units, disc, resolvedAliases, entry, &warnings)
			ownerUnit.AddEdge(model.Wants, target.CanonicalName, "wants-dir", sectionUnit)
		}
	}
	for owner, entries := range disc.RequiresLinks {
		ownerUnit := getOrCreate(units, disc, resolvedAliases, owner, &warnings)
		for _, entry := range entries {
			target := getOrCreate(units, disc, resolvedAliases, entry, &warnings)
			ownerUnit.AddEdge(model.Requires, target.CanonicalName, "requires-dir", sectionUnit)
		}
	}

	// Extracting explicit relations can itself create new units (template
	// instantiations, not_found placeholders), whose own explicit
	// relations must then be extracted too — so this runs to a fixed
	// point rather than over one fixed snapshot of unit names.
	processed := make(map[string]bool)
	for {
		var pending []string
		for _, name := range sortedKeys(units) {
			if !processed[name] {
				pending = append(pending, name)
			}
		}
		if len(pending) == 0 {
			break
		}
		for _, name := range pending {
			processed[name] = true
			u := units[name]
			if u.NotFound {
				continue
			}
			for _, kind := range explicitRelationKeys {
				for _, raw := range u.Directives.Get(sectionUnit, string(kind)) {
					for _, target := range splitTargets(raw) {
						resolved := getOrCreate(units, disc, resolvedAliases, target, &warnings)
						u.AddEdge(kind, resolved.CanonicalName, "explicit", sectionUnit)
					}
				}
			}
		}
	}

	implicit.InjectAll(units)

	// implicit.InjectAll can introduce edges to targets (e.g.
	// "sysinit.target") that were never referenced explicitly and so are
	// not yet keys in units; close over those now, then recompute reverse
	// edges so the newly-synthesized placeholders get their incoming
	// edges too (spec.md §3.4/§8.1 invariant 3 — every edge target is an
	// MS key).
	closeOverImplicitTargets(units, disc, resolvedAliases, &warnings)
	implicit.ComputeReverseEdges(units)

	runEnrichment(ctx, units, root, reg)

	if err := checkInvariants(units, resolvedAliases); err != nil {
		return nil, warnings, err
	}

	ms := &model.MS{Units: units, Meta: model.Meta{RootPath: root}}
	return ms, warnings, nil
}

// buildUnit merges a content-bearing unit's primary file and drop-ins into
// a UnitRecord and registers it, tracking overridden occurrences.
func buildUnit(units map[string]*model.UnitRecord, disc *discovery.Result, resolved *specifier.ResolvedAliases, basename string, warnings *[]diag.Warning) *model.UnitRecord {
	if u, ok := units[basename]; ok {
		return u
	}

	_, instance, typ, cat := specifier.Split(basename)
	occs := disc.ContentFiles[basename]

	sm, applied, mergeWarnings := dropin.Merge(disc, basename, resolved.AliasesOf[basename])
	*warnings = append(*warnings, mergeWarnings...)

	u := model.NewUnitRecord(basename, typ)
	u.Directives = sm
	u.Dropins = applied
	u.Aliases = resolved.AliasesOf[basename]
	u.IsTemplate = cat == specifier.CategoryTemplate
	if cat == specifier.CategoryInstance {
		u.InstanceName = instance
	}
	u.Masked = disc.Masked[basename]

	if len(occs) > 0 {
		u.SourcePath = occs[0].Path
		for _, occ := range occs[1:] {
			u.OverriddenBy = append(u.OverriddenBy, occ.Path)
		}
	}

	units[basename] = u
	return u
}

// getOrCreate returns the existing unit for name, or builds it from a
// content file, or instantiates it from a template, or synthesizes a
// not_found placeholder — in that preference order, per spec.md §3.4/§4.E.
func getOrCreate(units map[string]*model.UnitRecord, disc *discovery.Result, resolved *specifier.ResolvedAliases, name string, warnings *[]diag.Warning) *model.UnitRecord {
	if u, ok := units[name]; ok {
		return u
	}
	if _, ok := disc.ContentFiles[name]; ok {
		return buildUnit(units, disc, resolved, name, warnings)
	}

	prefix, instance, typ, cat := specifier.Split(name)
	if cat == specifier.CategoryInstance {
		templateName := specifier.TemplateName(prefix, typ)
		if _, ok := disc.ContentFiles[templateName]; ok {
			tmpl := buildUnit(units, disc, resolved, templateName, warnings)
			instDirectives, substWarnings := specifier.Instantiate(tmpl.Directives, prefix, instance, typ)
			*warnings = append(*warnings, substWarnings...)

			u := model.NewUnitRecord(name, typ)
			u.Directives = instDirectives
			u.InstanceName = instance
			u.SourcePath = tmpl.SourcePath
			u.Aliases = resolved.AliasesOf[name]
			units[name] = u
			return u
		}
	}

	if disc.Masked[name] {
		u := model.NewUnitRecord(name, typ)
		u.Masked = true
		u.Aliases = resolved.AliasesOf[name]
		units[name] = u
		return u
	}

	u := model.NewUnitRecord(name, typ)
	u.NotFound = true
	u.Aliases = resolved.AliasesOf[name]
	units[name] = u
	*warnings = append(*warnings, diag.NewWarning(diag.CodeTargetNotFound, name, "referenced unit not found on disk"))
	return u
}

// closeOverImplicitTargets synthesizes not_found placeholders for any
// relation target that implicit injection introduced but that is not yet
// a key in units.
func closeOverImplicitTargets(units map[string]*model.UnitRecord, disc *discovery.Result, resolved *specifier.ResolvedAliases, warnings *[]diag.Warning) {
	for {
		var missing []string
		for _, name := range sortedKeys(units) {
			for _, targets := range units[name].Relations {
				for _, target := range targets {
					if _, ok := units[target]; !ok {
						missing = append(missing, target)
					}
				}
			}
		}
		if len(missing) == 0 {
			return
		}
		for _, target := range missing {
			getOrCreate(units, disc, resolved, target, warnings)
		}
	}
}

func splitTargets(raw string) []string {
	return strings.Fields(raw)
}

func sortedKeys(units map[string]*model.UnitRecord) []string {
	keys := make([]string, 0, len(units))
	for k := range units {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkInvariants enforces spec.md §4.G's four assembly invariants:
// canonical-name uniqueness (structural, guaranteed by map keys),
// every non-synthetic unit has a source, alias disjointness, and reverse-
// edge symmetry for requirement and Conflicts edges (enforced by
// construction in internal/implicit, verified here as a sanity check).
func checkInvariants(units map[string]*model.UnitRecord, resolved *specifier.ResolvedAliases) error {
	seenAlias := make(map[string]string)
	for name, u := range units {
		if !u.NotFound && !u.Masked && u.SourcePath == "" && !u.IsTemplate && u.InstanceName == "" {
			// A plain unit with neither a source file nor not_found
			// status only arises from a construction bug upstream.
			return &AssemblyError{Invariant: "source-or-template", Detail: name + " has neither source_path nor not_found"}
		}
		for _, alias := range u.Aliases {
			if owner, dup := seenAlias[alias]; dup && owner != name {
				return &AssemblyError{Invariant: "alias-disjointness", Detail: alias + " claimed by both " + owner + " and " + name}
			}
			seenAlias[alias] = name
		}
		for kind, targets := range u.Relations {
			reverseKind, ok := model.ReverseOf(kind)
			if !ok || kind == model.Before || kind == model.After {
				continue
			}
			for _, target := range targets {
				if peer, ok := units[target]; ok && !slices.Contains(peer.Relations[reverseKind], name) {
					return &AssemblyError{Invariant: "reverse-edge-symmetry", Detail: target + " lacks " + string(reverseKind) + " " + name}
				}
			}
		}
	}
	return nil
}
