// Package implicit implements the Implicit-Dependency Injector of
// spec.md §4.F: after parsing and merging, every unit gets the
// default-dependency and type-specific implicit edges its type defines,
// each tagged with an origin of the form "implicit:<rule-id>".
package implicit

import (
	"sort"
	"strings"

	"github.com/trly/sysdmap/internal/model"
)

const sectionUnit = "Unit"

// InjectAll applies the default and type-specific implicit-dependency
// rules to every unit in units, then computes reverse edges for every
// relation that has one, per the table in spec.md §4.F. units must already
// contain every unit's explicit relations (from directives and
// wants/requires directories) before this runs.
func InjectAll(units map[string]*model.UnitRecord) {
	names := make([]string, 0, len(units))
	for n := range units {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		u := units[name]
		if u.NotFound {
			// A synthetic placeholder carries no directives and nothing
			// is known about its real type-specific behavior; only its
			// referenced-by edges (added by whoever pointed at it) are
			// meaningful.
			continue
		}
		if defaultDependenciesEnabled(u) {
			injectDefaults(u)
		}
		injectTypeSpecific(u, units)
		injectRequiresMountsFor(u, units)
		injectSupplementary(u, units)
	}

	ComputeReverseEdges(units)
}

// ComputeReverseEdges records, for every relation edge that has a defined
// reverse (per spec.md §4.F's mapping table), the inverse edge on the
// target unit — if the target is present in units. It is idempotent and
// exported so callers can re-run it after synthesizing not_found
// placeholders for targets that implicit rules introduced but that did not
// exist in units yet when InjectAll first ran.
func ComputeReverseEdges(units map[string]*model.UnitRecord) {
	names := make([]string, 0, len(units))
	for n := range units {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		injectReverseEdges(units[name], units)
	}
}

func defaultDependenciesEnabled(u *model.UnitRecord) bool {
	v := u.Directives.First(sectionUnit, "DefaultDependencies")
	if v == "" {
		v = u.Directives.First(sectionForType(u.Type), "DefaultDependencies")
	}
	return !strings.EqualFold(v, "no") && !strings.EqualFold(v, "false")
}

func requireAfter(u *model.UnitRecord, target, rule string) {
	u.AddEdge(model.Requires, target, "implicit:"+rule, sectionUnit)
	u.AddEdge(model.After, target, "implicit:"+rule, sectionUnit)
}

func wantAfter(u *model.UnitRecord, target, rule string) {
	u.AddEdge(model.Wants, target, "implicit:"+rule, sectionUnit)
	u.AddEdge(model.After, target, "implicit:"+rule, sectionUnit)
}

func bindsAfter(u *model.UnitRecord, target, rule string) {
	u.AddEdge(model.BindsTo, target, "implicit:"+rule, sectionUnit)
	u.AddEdge(model.After, target, "implicit:"+rule, sectionUnit)
}

func conflictBefore(u *model.UnitRecord, target, rule string) {
	u.AddEdge(model.Conflicts, target, "implicit:"+rule, sectionUnit)
	u.AddEdge(model.Before, target, "implicit:"+rule, sectionUnit)
}

func before(u *model.UnitRecord, target, rule string) {
	u.AddEdge(model.Before, target, "implicit:"+rule, sectionUnit)
}

// triggersBefore records both the ordering (Before) and activation
// (Triggers) edge for a path/socket/timer's matched unit: systemd starts
// the matched unit before/alongside the triggering unit, and the
// triggering unit's activation is what starts it, so it belongs in the
// closure set (spec.md §4.H step 4) rather than being reachable only via
// ordering.
func triggersBefore(u *model.UnitRecord, target, rule string) {
	before(u, target, rule)
	u.AddEdge(model.Triggers, target, "implicit:"+rule, sectionUnit)
}

func after(u *model.UnitRecord, target, rule string) {
	u.AddEdge(model.After, target, "implicit:"+rule, sectionUnit)
}

func injectDefaults(u *model.UnitRecord) {
	switch u.Type {
	case "service":
		requireAfter(u, "sysinit.target", "service-default")
		after(u, "basic.target", "service-default")
		conflictBefore(u, "shutdown.target", "service-default")
	case "socket":
		before(u, "sockets.target", "socket-default")
		requireAfter(u, "sysinit.target", "socket-default")
		u.AddEdge(model.Conflicts, "shutdown.target", "implicit:socket-default", sectionUnit)
		before(u, "shutdown.target", "socket-default")
	case "mount":
		u.AddEdge(model.Conflicts, "umount.target", "implicit:mount-default", sectionUnit)
		before(u, "umount.target", "mount-default")
		injectMountFsClass(u)
	case "automount":
		u.AddEdge(model.Conflicts, "umount.target", "implicit:automount-default", sectionUnit)
		before(u, "umount.target", "automount-default")
		after(u, "local-fs-pre.target", "automount-default")
		before(u, "local-fs.target", "automount-default")
	case "swap":
		u.AddEdge(model.Conflicts, "umount.target", "implicit:swap-default", sectionUnit)
		before(u, "umount.target", "swap-default")
		before(u, "swap.target", "swap-default")
	case "target":
		conflictBefore(u, "shutdown.target", "target-default")
		for _, kind := range []model.RelationKind{model.Wants, model.Requires} {
			for _, target := range u.Relations[kind] {
				if target != u.CanonicalName {
					after(u, target, "target-default")
				}
			}
		}
	case "path":
		before(u, "paths.target", "path-default")
		requireAfter(u, "sysinit.target", "path-default")
		conflictBefore(u, "shutdown.target", "path-default")
	case "timer":
		requireAfter(u, "sysinit.target", "timer-default")
		before(u, "timers.target", "timer-default")
		conflictBefore(u, "shutdown.target", "timer-default")
		if u.Directives.First("Timer", "OnCalendar") != "" {
			after(u, "time-set.target", "timer-oncalendar")
			after(u, "time-sync.target", "timer-oncalendar")
		}
	case "slice":
		conflictBefore(u, "shutdown.target", "slice-default")
	case "scope":
		conflictBefore(u, "shutdown.target", "scope-default")
	}
}

func injectMountFsClass(u *model.UnitRecord) {
	opts := u.Directives.First("Mount", "Options")
	nofail := strings.Contains(opts, "nofail")
	if isNetworkMount(u, opts) {
		after(u, "remote-fs-pre.target", "mount-network")
		after(u, "network.target", "mount-network")
		after(u, "network-online.target", "mount-network")
		if !nofail {
			before(u, "remote-fs.target", "mount-network")
		}
		return
	}
	after(u, "local-fs-pre.target", "mount-local")
	if !nofail {
		before(u, "local-fs.target", "mount-local")
	}
}

var networkFsTypes = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "glusterfs": true, "ceph": true,
}

func isNetworkMount(u *model.UnitRecord, opts string) bool {
	if strings.Contains(opts, "_netdev") {
		return true
	}
	return networkFsTypes[strings.ToLower(u.Directives.First("Mount", "Type"))]
}

func injectTypeSpecific(u *model.UnitRecord, units map[string]*model.UnitRecord) {
	switch u.Type {
	case "service":
		if strings.EqualFold(u.Directives.First("Service", "Type"), "dbus") {
			requireAfter(u, "dbus.socket", "service-type-dbus")
		}
		for _, sock := range splitList(u.Directives.First("Service", "Sockets")) {
			wantAfter(u, sock, "service-sockets")
		}
	case "socket":
		matched := matchedServiceName(u, units)
		if matched != "" {
			triggersBefore(u, matched, "socket-triggers")
		}
		for _, listenPath := range listenPaths(u) {
			for _, mountName := range coveringMounts(listenPath, units) {
				requireAfter(u, mountName, "socket-listen-path")
			}
		}
		if dev := u.Directives.First("Socket", "BindToDevice"); dev != "" {
			bindsAfter(u, dev+".device", "socket-bind-device")
		}
	case "mount":
		if parent := parentMount(u, units); parent != "" {
			requireAfter(u, parent, "mount-nested")
		}
		if what := u.Directives.First("Mount", "What"); strings.HasPrefix(what, "/dev/") {
			bindsAfter(u, deviceUnitName(what), "mount-backing-device")
		}
	case "automount":
		if parent := parentMount(u, units); parent != "" {
			requireAfter(u, parent, "automount-nested")
		}
		same := strings.TrimSuffix(u.CanonicalName, ".automount") + ".mount"
		if _, ok := units[same]; ok {
			before(u, same, "automount-triggers")
		}
	case "swap":
		if what := u.Directives.First("Swap", "What"); what != "" {
			if strings.HasPrefix(what, "/dev/") {
				bindsAfter(u, deviceUnitName(what), "swap-backing-device")
			} else if m, ok := units[mountUnitNameForPath(what)]; ok {
				bindsAfter(u, m.CanonicalName, "swap-backing-mount")
			}
		}
	case "path":
		if parent := parentMount(u, units); parent != "" {
			requireAfter(u, parent, "path-nested")
		}
		if matched := triggeredUnitName(u, "Path", units); matched != "" {
			triggersBefore(u, matched, "path-triggers")
		}
	case "timer":
		if matched := triggeredUnitName(u, "Timer", units); matched != "" {
			triggersBefore(u, matched, "timer-triggers")
		}
	case "slice":
		if parent := parentSlice(u.CanonicalName); parent != "" {
			requireAfter(u, parent, "slice-hierarchy")
		}
	}
}

func splitList(v string) []string {
	return strings.Fields(v)
}

func matchedServiceName(u *model.UnitRecord, units map[string]*model.UnitRecord) string {
	if svc := u.Directives.First("Socket", "Service"); svc != "" {
		return svc
	}
	prefix := strings.TrimSuffix(u.CanonicalName, ".socket")
	candidate := prefix + ".service"
	if _, ok := units[candidate]; ok {
		return candidate
	}
	return ""
}

func triggeredUnitName(u *model.UnitRecord, section string, units map[string]*model.UnitRecord) string {
	if unitField := u.Directives.First(section, "Unit"); unitField != "" {
		return unitField
	}
	prefix := strings.TrimSuffix(u.CanonicalName, "."+u.Type)
	candidate := prefix + ".service"
	if _, ok := units[candidate]; ok {
		return candidate
	}
	return ""
}

func listenPaths(u *model.UnitRecord) []string {
	var out []string
	for _, key := range []string{"ListenStream", "ListenDatagram", "ListenSequentialPacket", "ListenFIFO"} {
		for _, v := range u.Directives.Get("Socket", key) {
			if strings.HasPrefix(v, "/") {
				out = append(out, v)
			}
		}
	}
	return out
}

// coveringMounts returns the canonical names of every mount unit in units
// whose Where= is the longest matching prefix of path.
func coveringMounts(path string, units map[string]*model.UnitRecord) []string {
	best := ""
	var bestNames []string
	for name, u := range units {
		if u.Type != "mount" {
			continue
		}
		where := u.Directives.First("Mount", "Where")
		if where == "" || !strings.HasPrefix(path, where) {
			continue
		}
		if len(where) > len(best) {
			best = where
			bestNames = []string{name}
		} else if len(where) == len(best) {
			bestNames = append(bestNames, name)
		}
	}
	sort.Strings(bestNames)
	return bestNames
}

func parentMount(u *model.UnitRecord, units map[string]*model.UnitRecord) string {
	where := u.Directives.First(sectionForType(u.Type), "Where")
	if where == "" || where == "/" {
		return ""
	}
	dir := where
	for {
		idx := strings.LastIndex(dir, "/")
		if idx <= 0 {
			return ""
		}
		dir = dir[:idx]
		if name := mountUnitNameForPath(dir); name != u.CanonicalName {
			if _, ok := units[name]; ok {
				return name
			}
		}
	}
}

func sectionForType(typ string) string {
	switch typ {
	case "mount":
		return "Mount"
	case "automount":
		return "Automount"
	case "path":
		return "Path"
	}
	return "Unit"
}

// mountUnitNameForPath derives the canonical mount-unit name systemd would
// assign to a given absolute path (the unit-name-escaped path plus
// ".mount"). Escaping is simplified to slash replacement, sufficient for
// the ASCII paths a static firmware-tree analysis is expected to see.
func mountUnitNameForPath(path string) string {
	p := strings.Trim(path, "/")
	if p == "" {
		return "-.mount"
	}
	return strings.ReplaceAll(p, "/", "-") + ".mount"
}

func deviceUnitName(devPath string) string {
	p := strings.TrimPrefix(devPath, "/")
	return strings.ReplaceAll(p, "/", "-") + ".device"
}

func parentSlice(name string) string {
	base := strings.TrimSuffix(name, ".slice")
	if base == "-" || base == "" {
		return ""
	}
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return "-.slice"
	}
	return base[:idx] + ".slice"
}

func injectRequiresMountsFor(u *model.UnitRecord, units map[string]*model.UnitRecord) {
	for _, path := range u.Directives.Get(sectionForType(u.Type), "RequiresMountsFor") {
		for _, field := range strings.Fields(path) {
			for _, mountName := range coveringMounts(field, units) {
				requireAfter(u, mountName, "requires-mounts-for")
			}
		}
	}
	for _, path := range u.Directives.Get("Service", "RequiresMountsFor") {
		for _, field := range strings.Fields(path) {
			for _, mountName := range coveringMounts(field, units) {
				requireAfter(u, mountName, "requires-mounts-for")
			}
		}
	}
}

// injectSupplementary applies the three additional implicit rules
// documented in SPEC_FULL.md, sourced from the original implementation's
// check_implicit_dependencies: TTYPath=, LogNamespace=, and Slice=.
func injectSupplementary(u *model.UnitRecord, units map[string]*model.UnitRecord) {
	if tty := u.Directives.First("Service", "TTYPath"); tty != "" {
		after(u, "systemd-vconsole-setup.service", "exec-tty")
	}
	if ns := u.Directives.First("Service", "LogNamespace"); ns != "" {
		u.AddEdge(model.Requires, "systemd-journald@"+ns+".service", "implicit:exec-lognamespace", sectionUnit)
	}
	if slice := u.Directives.First("Service", "Slice"); slice != "" {
		requireAfter(u, slice, "resource-slice")
	} else if slice := u.Directives.First("Scope", "Slice"); slice != "" {
		requireAfter(u, slice, "resource-slice")
	}
}

func injectReverseEdges(u *model.UnitRecord, units map[string]*model.UnitRecord) {
	for kind, targets := range snapshotRelations(u) {
		reverseKind, ok := model.ReverseOf(kind)
		if !ok || kind == model.Before || kind == model.After {
			// Before/After are ordering edges, not requirement edges: no
			// reverse is derived for them, so they stay recorded only on
			// the unit that declares them.
			continue
		}
		for _, target := range targets {
			peer, ok := units[target]
			if !ok {
				continue
			}
			peer.AddEdge(reverseKind, u.CanonicalName, "reverse-of:"+string(kind), sectionUnit)
		}
	}
}

func snapshotRelations(u *model.UnitRecord) map[model.RelationKind][]string {
	out := make(map[model.RelationKind][]string, len(u.Relations))
	for k, v := range u.Relations {
		out[k] = append([]string(nil), v...)
	}
	return out
}
