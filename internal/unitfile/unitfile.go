// Package unitfile implements the Unit File Lexer of spec.md §4.B: parsing
// one unit file into an ordered list of (section, key, value) directives,
// and applying systemd's directive-repetition and "Key=" reset semantics
// when merging several parsed files (a base file plus its drop-ins) into a
// single effective directive table.
//
// Tokenizing is delegated to github.com/coreos/go-systemd/v22/unit, which
// already understands comments, blank lines, section headers, quoting and
// line continuation; this package adds the repetition/reset semantics the
// library itself is agnostic about.
package unitfile

import (
	"bytes"
	"fmt"
	"strings"

	systemdunit "github.com/coreos/go-systemd/v22/unit"
)

// Directive is one (section, key, value) triple in file order.
type Directive struct {
	Section string
	Key     string
	Value   string
}

// MalformedUnitError reports a unit file that could not be tokenized, per
// spec.md §7 (recoverable, logged, skipped).
type MalformedUnitError struct {
	Path  string
	Cause error
}

func (e *MalformedUnitError) Error() string {
	return fmt.Sprintf("malformed unit file %q: %v", e.Path, e.Cause)
}

func (e *MalformedUnitError) Unwrap() error { return e.Cause }

// Parse tokenizes the bytes of a single unit file into an ordered list of
// directives. A directive-before-first-section-header or similarly
// malformed file yields a *MalformedUnitError.
func Parse(path string, data []byte) ([]Directive, error) {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';' {
			continue
		}
		if trimmed[0] != '[' {
			return nil, &MalformedUnitError{Path: path, Cause: fmt.Errorf("directive before first section header: %q", trimmed)}
		}
		break
	}
	opts, err := systemdunit.Deserialize(bytes.NewReader(data))
	if err != nil {
		return nil, &MalformedUnitError{Path: path, Cause: err}
	}
	out := make([]Directive, 0, len(opts))
	for _, o := range opts {
		out = append(out, Directive{Section: o.Section, Key: o.Name, Value: o.Value})
	}
	return out, nil
}

// SectionMap is the merged directive table: section name -> directive key
// -> ordered list of raw string values. Lists are preserved in full because
// systemd allows directive repetition with additive semantics (spec.md
// §3.2).
type SectionMap map[string]map[string][]string

// NewSectionMap returns an empty SectionMap.
func NewSectionMap() SectionMap {
	return make(SectionMap)
}

// Apply merges an ordered directive list into sm, honoring the "Key="
// (empty RHS) reset rule: an occurrence with an empty value clears any
// values already accumulated for that key in that section, and all
// subsequent values for the key (from this file or a later one) start
// fresh. This must be called once per file, in the merge precedence order
// established by spec.md §4.D, for the reset semantics to be correct
// (spec.md §8.1 invariant 7).
func (sm SectionMap) Apply(directives []Directive) {
	for _, d := range directives {
		section, ok := sm[d.Section]
		if !ok {
			section = make(map[string][]string)
			sm[d.Section] = section
		}
		if d.Value == "" {
			section[d.Key] = nil
			continue
		}
		section[d.Key] = append(section[d.Key], d.Value)
	}
}

// Get returns the ordered value list for a section/key, or nil if absent.
func (sm SectionMap) Get(section, key string) []string {
	s, ok := sm[section]
	if !ok {
		return nil
	}
	return s[key]
}

// First returns the first value for a section/key, or "" if absent.
func (sm SectionMap) First(section, key string) string {
	vals := sm.Get(section, key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Clone returns a deep copy of sm, used so a template's SectionMap can be
// instantiated per-instance without aliasing the template's own storage.
func (sm SectionMap) Clone() SectionMap {
	out := make(SectionMap, len(sm))
	for section, keys := range sm {
		nk := make(map[string][]string, len(keys))
		for k, v := range keys {
			nv := make([]string, len(v))
			copy(nv, v)
			nk[k] = nv
		}
		out[section] = nk
	}
	return out
}
