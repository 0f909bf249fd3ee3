// Package dropin implements the Drop-in Merger of spec.md §4.D: combining a
// unit's primary content file with its applicable type-wide, name-specific,
// and alias drop-ins into one effective directive table, in the precedence
// order systemd itself uses.
package dropin

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/discovery"
	"github.com/trly/sysdmap/internal/unitfile"
)

// unitType returns the type suffix of a canonical unit name ("service" for
// "foo.service"), used to look up type-wide drop-ins.
func unitType(basename string) string {
	idx := strings.LastIndex(basename, ".")
	if idx < 0 {
		return ""
	}
	return basename[idx+1:]
}

// Merge produces U's effective SectionMap: its primary file (if any),
// overlaid with type-wide drop-ins, then name-specific drop-ins, then the
// name-specific drop-ins of every alias of U, each applied in the
// lexicographic-within-directory, precedence-ordered-across-directories
// order discovery.Walk already established.
//
// It returns the merged directives, the ordered list of drop-in file paths
// that were actually applied (for the unit record's `dropins` field), and
// any recoverable parse warnings.
func Merge(res *discovery.Result, basename string, aliases []string) (unitfile.SectionMap, []string, []diag.Warning) {
	sm := unitfile.NewSectionMap()
	var applied []string
	var warnings []diag.Warning

	apply := func(path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, diag.NewWarning(diag.CodeMalformedUnit, basename, "unreadable drop-in: "+path))
			return
		}
		directives, err := unitfile.Parse(path, data)
		if err != nil {
			warnings = append(warnings, diag.NewWarning(diag.CodeMalformedUnit, basename, err.Error()))
			return
		}
		sm.Apply(directives)
		applied = append(applied, path)
	}

	if occs := res.ContentFiles[basename]; len(occs) > 0 {
		apply(occs[0].Path)
	}

	for _, path := range res.TypeDropins[unitType(basename)] {
		apply(path)
	}

	for _, path := range res.NameDropins[basename] {
		apply(path)
	}

	sortedAliases := append([]string(nil), aliases...)
	sort.Strings(sortedAliases)
	for _, alias := range sortedAliases {
		// aliases holds full symlink paths (ResolvedAliases.AliasesOf), but
		// NameDropins is keyed by bare basename; the alias's own basename is
		// what owns a "<alias>.d/" drop-in directory (spec.md §4.D step 4).
		for _, path := range res.NameDropins[filepath.Base(alias)] {
			apply(path)
		}
	}

	return sm, applied, warnings
}
