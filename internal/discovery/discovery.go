// Package discovery implements the Unit Discovery component of spec.md
// §4.C: walking each search path in precedence order and classifying every
// directory entry into one of the raw shapes the later components need —
// content files, aliases, masked units, drop-in directories, and
// wants/requires directories.
//
// Discovery does no merging and no alias resolution; it only records what
// is on disk, in precedence order, so that internal/dropin and
// internal/specifier can apply systemd's layering rules deterministically.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/sorting"
)

// unitTypes lists the canonical unit type suffixes, per spec.md §3.1.
var unitTypes = []string{
	"service", "socket", "device", "mount", "automount",
	"swap", "target", "path", "timer", "slice", "scope",
}

// Occurrence is one appearance of a content-bearing unit file at a given
// search path.
type Occurrence struct {
	Path     string
	PathRank int // index into the search-path list; lower is higher precedence
}

// Alias is a symlink whose basename carries a type suffix, discovered at a
// search path, not inside a .wants/.requires directory.
type Alias struct {
	LinkPath       string
	LinkBasename   string
	TargetBasename string // "" if Dangling
	RawTarget      string
	Dangling       bool
	Escaping       bool
}

// Result is the raw product of walking every search path once.
type Result struct {
	// ContentFiles maps a unit basename to every regular-file occurrence
	// across search paths, in precedence order; the first entry wins
	// (spec.md §4.C "First-wins override").
	ContentFiles map[string][]Occurrence

	// Aliases lists every unit-suffixed symlink found directly in a
	// search path (as opposed to inside a .wants/.requires directory).
	Aliases []Alias

	// Masked records every basename that resolved to a masked unit,
	// either via a symlink to /dev/null or a zero-length regular file.
	Masked map[string]bool

	// TypeDropins maps a bare type name ("service") to its type-wide
	// drop-in conf files, already ordered lowest-precedence-directory
	// first so that later entries in the slice override earlier ones
	// (spec.md §4.D step 2).
	TypeDropins map[string][]string

	// NameDropins maps a unit basename to its name-specific drop-in conf
	// files, ordered the same way.
	NameDropins map[string][]string

	// WantsLinks and RequiresLinks map an owning unit basename to the
	// basenames listed in its *.wants/ or *.requires/ directory.
	WantsLinks    map[string][]string
	RequiresLinks map[string][]string
}

func newResult() *Result {
	return &Result{
		ContentFiles:  make(map[string][]Occurrence),
		Masked:        make(map[string]bool),
		TypeDropins:   make(map[string][]string),
		NameDropins:   make(map[string][]string),
		WantsLinks:    make(map[string][]string),
		RequiresLinks: make(map[string][]string),
	}
}

// Walk discovers units under root across the given search paths (already in
// precedence order, as returned by pathresolver.Resolver.SearchPaths).
// Recoverable problems (dangling or root-escaping symlinks) are appended to
// warnings; Walk itself never fails fatally — an unreadable search path is
// simply skipped, matching the tolerant posture of the rest of the core.
func Walk(root string, searchPaths []string, warnings *[]diag.Warning) *Result {
	res := newResult()

	// Drop-ins are collected per directory rank first and flattened in
	// reverse-rank order afterward: searchPaths is highest-precedence
	// first (etc, run, usr/...), but spec.md §4.D requires drop-ins to be
	// applied lowest-precedence directory first so that a higher-precedence
	// directory's files are layered on top and win ties.
	typeDropinsByRank := make(map[string]map[int][]string)
	nameDropinsByRank := make(map[string]map[int][]string)

	for rank, sp := range searchPaths {
		entries, err := os.ReadDir(sp)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			fullPath := filepath.Join(sp, name)

			if entry.IsDir() {
				classifyDir(res, name, fullPath, rank, typeDropinsByRank, nameDropinsByRank)
				continue
			}

			prefix, typ, ok := splitTypeSuffix(name)
			if !ok {
				continue
			}
			basename := prefix + "." + typ

			info, err := entry.Info()
			if err != nil {
				continue
			}

			if info.Mode()&os.ModeSymlink != 0 {
				classifySymlink(res, root, basename, fullPath, warnings)
				continue
			}

			if info.Size() == 0 {
				res.Masked[basename] = true
			}
			res.ContentFiles[basename] = append(res.ContentFiles[basename], Occurrence{
				Path:     fullPath,
				PathRank: rank,
			})
		}
	}

	flattenByDescendingRank(res.TypeDropins, typeDropinsByRank, len(searchPaths))
	flattenByDescendingRank(res.NameDropins, nameDropinsByRank, len(searchPaths))

	return res
}

func flattenByDescendingRank(dst map[string][]string, byRank map[string]map[int][]string, numRanks int) {
	for key, ranked := range byRank {
		var out []string
		for rank := numRanks - 1; rank >= 0; rank-- {
			out = append(out, ranked[rank]...)
		}
		dst[key] = out
	}
}

// classifyDir handles a single directory entry: a name-specific or
// type-wide drop-in directory, or a wants/requires directory.
func classifyDir(res *Result, name, fullPath string, rank int, typeDropinsByRank, nameDropinsByRank map[string]map[int][]string) {
	rest, kind, ok := splitDirSuffix(name)
	if !ok {
		return
	}

	var prefix, typ string
	if isBareType(rest) {
		typ = rest
	} else {
		var splitOk bool
		prefix, typ, splitOk = splitTypeSuffix(rest)
		if !splitOk {
			return
		}
	}

	switch {
	case prefix == "" && kind == "d":
		confs := listConfFiles(fullPath)
		if confs == nil {
			return
		}
		if typeDropinsByRank[typ] == nil {
			typeDropinsByRank[typ] = make(map[int][]string)
		}
		typeDropinsByRank[typ][rank] = append(typeDropinsByRank[typ][rank], confs...)
	case prefix == "":
		// "<type>.wants" / "<type>.requires" with no owning unit prefix
		// is not meaningful; ignore.
	case kind == "d":
		owner := prefix + "." + typ
		confs := listConfFiles(fullPath)
		if confs == nil {
			return
		}
		if nameDropinsByRank[owner] == nil {
			nameDropinsByRank[owner] = make(map[int][]string)
		}
		nameDropinsByRank[owner][rank] = append(nameDropinsByRank[owner][rank], confs...)
	case kind == "wants":
		owner := prefix + "." + typ
		res.WantsLinks[owner] = append(res.WantsLinks[owner], listEntryBasenames(fullPath)...)
	case kind == "requires":
		owner := prefix + "." + typ
		res.RequiresLinks[owner] = append(res.RequiresLinks[owner], listEntryBasenames(fullPath)...)
	}
}

// classifySymlink resolves a unit-suffixed symlink found directly in a
// search path and records it as a masked unit, a dangling/escaping alias,
// or a normal alias.
func classifySymlink(res *Result, root, basename, linkPath string, warnings *[]diag.Warning) {
	raw, err := os.Readlink(linkPath)
	if err != nil {
		return
	}

	if raw == "/dev/null" {
		res.Masked[basename] = true
		return
	}

	target := raw
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(linkPath), target)
	} else {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	cleanRoot := filepath.Clean(root)
	if _, err := sorting.ValidatePathWithinBase(target, cleanRoot); err != nil {
		res.Aliases = append(res.Aliases, Alias{
			LinkPath:     linkPath,
			LinkBasename: basename,
			RawTarget:    raw,
			Escaping:     true,
		})
		*warnings = append(*warnings, diag.NewWarning(diag.CodeEscapingSymlink, basename, "symlink target escapes root: "+raw))
		return
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		res.Aliases = append(res.Aliases, Alias{
			LinkPath:     linkPath,
			LinkBasename: basename,
			RawTarget:    raw,
			Dangling:     true,
		})
		*warnings = append(*warnings, diag.NewWarning(diag.CodeDanglingSymlink, basename, "dangling symlink: "+raw))
		return
	}

	if info, err := os.Stat(resolved); err == nil && info.Size() == 0 {
		res.Masked[basename] = true
		return
	}

	res.Aliases = append(res.Aliases, Alias{
		LinkPath:       linkPath,
		LinkBasename:   basename,
		TargetBasename: filepath.Base(resolved),
		RawTarget:      raw,
	})
}

// isBareType reports whether name is exactly a recognized unit type, as in
// the top-level "service.d" type-wide drop-in directory.
func isBareType(name string) bool {
	for _, t := range unitTypes {
		if name == t {
			return true
		}
	}
	return false
}

// splitTypeSuffix splits "foo@bar.service" into ("foo@bar", "service", true)
// for any recognized unit type; returns ok=false for anything else.
func splitTypeSuffix(name string) (prefix, typ string, ok bool) {
	for _, t := range unitTypes {
		suffix := "." + t
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix), t, true
		}
	}
	return "", "", false
}

// splitDirSuffix strips a ".d", ".wants", or ".requires" directory suffix.
func splitDirSuffix(name string) (rest, kind string, ok bool) {
	for _, suffix := range []string{".wants", ".requires", ".d"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix), strings.TrimPrefix(suffix, "."), true
		}
	}
	return "", "", false
}

func listConfFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

func listEntryBasenames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}
