// Package specifier implements the Alias & Template Engine of spec.md
// §4.E: alias-category validation, alias-path bookkeeping, and specifier
// substitution (%i, %I, %n, %N, %p, %f, %%) for template instantiation.
// It lists the names that need synthetic not_found units; internal/mstruct
// creates those units.
package specifier

import (
	"sort"
	"strconv"
	"strings"

	"github.com/trly/sysdmap/internal/diag"
	"github.com/trly/sysdmap/internal/discovery"
	"github.com/trly/sysdmap/internal/unitfile"
)

// Category classifies a canonical unit name by its instance portion.
type Category int

const (
	CategoryPlain Category = iota
	CategoryTemplate
	CategoryInstance
)

// Split breaks a canonical unit name into its prefix, instance (empty for
// plain and template units), and type suffix, and reports its Category.
func Split(name string) (prefix, instance, typ string, cat Category) {
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return name, "", "", CategoryPlain
	}
	base, t := name[:dot], name[dot+1:]
	at := strings.Index(base, "@")
	if at < 0 {
		return base, "", t, CategoryPlain
	}
	inst := base[at+1:]
	if inst == "" {
		return base[:at], "", t, CategoryTemplate
	}
	return base[:at], inst, t, CategoryInstance
}

// TemplateName returns the template identity for a given instance or plain
// name's prefix and type ("foo@.service" for prefix "foo", type "service").
func TemplateName(prefix, typ string) string {
	return prefix + "@." + typ
}

// ResolvedAliases maps each canonical unit name to the sorted set of alias
// paths that legally point to it, after dropping any alias whose category
// or type suffix does not match its target (spec.md §4.E "any other
// mapping emits BadAlias").
type ResolvedAliases struct {
	AliasesOf map[string][]string
	// NotFoundTargets lists synthetic canonical names that must be added
	// to the MS as not_found units, because some alias is a dangling
	// symlink pointing at them or a symlink escaping the root.
	NotFoundTargets []string
}

// ResolveAliases validates and groups raw discovery.Alias records by their
// (possibly synthetic) target canonical name.
func ResolveAliases(aliases []discovery.Alias) (*ResolvedAliases, []diag.Warning) {
	out := &ResolvedAliases{AliasesOf: make(map[string][]string)}
	var warnings []diag.Warning
	seenNotFound := make(map[string]bool)

	for _, a := range aliases {
		if a.Escaping {
			// Already warned about by discovery; treated like dangling —
			// the real target is unreachable, so it resolves to a
			// synthetic not_found unit named after the alias itself.
			target := a.LinkBasename
			if !seenNotFound[target] {
				seenNotFound[target] = true
				out.NotFoundTargets = append(out.NotFoundTargets, target)
			}
			out.AliasesOf[target] = append(out.AliasesOf[target], a.LinkPath)
			continue
		}
		if a.Dangling {
			target := danglingTargetName(a)
			if !seenNotFound[target] {
				seenNotFound[target] = true
				out.NotFoundTargets = append(out.NotFoundTargets, target)
			}
			out.AliasesOf[target] = append(out.AliasesOf[target], a.LinkPath)
			warnings = append(warnings, diag.NewWarning(diag.CodeTargetNotFound, target, "dangling alias resolves to missing unit"))
			continue
		}

		_, _, linkTyp, linkCat := Split(a.LinkBasename)
		_, _, targetTyp, targetCat := Split(a.TargetBasename)

		if linkTyp != targetTyp || linkCat != targetCat {
			warnings = append(warnings, diag.NewWarning(diag.CodeBadAlias, a.LinkBasename, "alias changes type or category: "+a.LinkBasename+" -> "+a.TargetBasename))
			continue
		}

		out.AliasesOf[a.TargetBasename] = append(out.AliasesOf[a.TargetBasename], a.LinkPath)
	}

	for _, paths := range out.AliasesOf {
		sort.Strings(paths)
	}

	return out, warnings
}

// danglingTargetName derives a best-effort canonical name for a dangling
// symlink's target, from the raw (unresolved) link text, so that a
// synthetic not_found unit can be keyed consistently.
func danglingTargetName(a discovery.Alias) string {
	raw := a.RawTarget
	if idx := strings.LastIndexByte(raw, '/'); idx >= 0 {
		raw = raw[idx+1:]
	}
	if raw == "" {
		return a.LinkBasename
	}
	return raw
}

// Unescape decodes systemd's "\xHH" unit-name escape sequences, as used by
// the %I specifier.
func Unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && s[i+1] == 'x' {
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Instantiate clones a template's SectionMap for a given instance and
// substitutes every specifier occurrence in every directive value.
// Unknown specifiers are left verbatim and reported via the returned
// warnings, per spec.md §4.E.
func Instantiate(template unitfile.SectionMap, prefix, instance, typ string) (unitfile.SectionMap, []diag.Warning) {
	clone := template.Clone()
	var warnings []diag.Warning

	for sectionName, keys := range clone {
		for key, values := range keys {
			for i, v := range values {
				substituted, w := substitute(v, prefix, instance, typ)
				values[i] = substituted
				warnings = append(warnings, w...)
			}
			clone[sectionName][key] = values
		}
	}
	return clone, warnings
}

func substitute(value, prefix, instance, typ string) (string, []diag.Warning) {
	var warnings []diag.Warning
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] != '%' || i+1 >= len(value) {
			b.WriteByte(value[i])
			continue
		}
		switch value[i+1] {
		case 'i':
			b.WriteString(instance)
		case 'I':
			b.WriteString(Unescape(instance))
		case 'n':
			b.WriteString(unitName(prefix, instance, typ))
		case 'N':
			if instance == "" {
				b.WriteString(prefix)
			} else {
				b.WriteString(prefix + "@" + instance)
			}
		case 'p':
			b.WriteString(prefix)
		case 'f':
			b.WriteString("/" + Unescape(instance))
		case '%':
			b.WriteByte('%')
		default:
			warnings = append(warnings, diag.NewWarning(diag.CodeUnknownSpecifier, unitName(prefix, instance, typ), "unknown specifier %"+string(value[i+1])))
			b.WriteByte('%')
			b.WriteByte(value[i+1])
		}
		i++
	}
	return b.String(), warnings
}

func unitName(prefix, instance, typ string) string {
	if instance == "" {
		return prefix + "." + typ
	}
	return prefix + "@" + instance + "." + typ
}
