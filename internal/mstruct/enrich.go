package mstruct

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/trly/sysdmap/internal/enrich"
	"github.com/trly/sysdmap/internal/model"
)

// execDirectiveKeys are the [Service] directives whose command lines the
// assembler offers to the artifact enricher, per spec.md §6.5.
var execDirectiveKeys = []string{"ExecStart", "ExecStartPre", "ExecStartPost", "ExecStop", "ExecReload"}

const sectionService = "Service"

// runEnrichment offers every Exec*= command line's resolved executable
// path to reg, for every unit whose path exists under root. A nil reg
// (no enricher registered) is a no-op, per spec.md §6.5.
func runEnrichment(ctx context.Context, units map[string]*model.UnitRecord, root string, reg *enrich.Registry) {
	if reg == nil {
		return
	}
	for _, name := range sortedKeys(units) {
		u := units[name]
		if u.NotFound || u.Masked {
			continue
		}
		for _, key := range execDirectiveKeys {
			for _, cmdline := range u.Directives.Get(sectionService, key) {
				execPath := execPathFromCommandLine(cmdline)
				if execPath == "" {
					continue
				}
				resolved := filepath.Join(root, execPath)
				if _, err := os.Stat(resolved); err != nil {
					continue
				}
				enrichment := reg.Enrich(ctx, resolved)
				if u.Enrichments == nil {
					u.Enrichments = make(map[string]model.Enrichment)
				}
				u.Enrichments[cmdline] = enrichment
			}
		}
	}
}

// execPathFromCommandLine extracts the executable path from a raw Exec*=
// value, stripping systemd's optional prefix characters ("@", "-", ":",
// "+", "!", "!!") and any trailing argv. Returns "" for a relative path,
// since the enricher hook only resolves paths locatable under the root.
func execPathFromCommandLine(cmdline string) string {
	trimmed := strings.TrimSpace(cmdline)
	for len(trimmed) > 0 && strings.ContainsRune("@-:+!", rune(trimmed[0])) {
		trimmed = trimmed[1:]
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	return fields[0]
}
