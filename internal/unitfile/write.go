package unitfile

import (
	"io"
	"sort"

	"gopkg.in/ini.v1"
)

// Write serializes a SectionMap back into unit-file text, one INI section
// per systemd section, with repeated directives reproduced as go-ini
// "shadow" keys. Sections and keys are emitted in sorted order for
// deterministic output; this is used for enricher input and golden tests,
// not for the MS/DM JSON artifacts themselves (those are encoding/json, per
// spec.md §6.2/§6.3).
func Write(w io.Writer, sm SectionMap) error {
	f := ini.Empty(ini.LoadOptions{AllowShadows: true})

	sections := make([]string, 0, len(sm))
	for s := range sm {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	for _, sectionName := range sections {
		section, err := f.NewSection(sectionName)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(sm[sectionName]))
		for k := range sm[sectionName] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			values := sm[sectionName][key]
			if len(values) == 0 {
				continue
			}
			k, err := section.NewKey(key, values[0])
			if err != nil {
				return err
			}
			for _, v := range values[1:] {
				if err := k.AddShadow(v); err != nil {
					return err
				}
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
