// Package pathresolver enumerates systemd unit search paths under a
// filesystem root, in precedence order, per spec.md §4.A.
package pathresolver

import (
	"os"
	"path/filepath"
)

// systemPaths lists the system-scope search path suffixes, highest
// precedence first. User-scope paths are never searched (spec.md §4.A).
var systemPaths = []string{
	"etc/systemd/system",
	"run/systemd/system",
	"usr/local/lib/systemd/system",
	"usr/lib/systemd/system",
	"lib/systemd/system",
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtraSearchPaths appends additional root-relative search paths,
// lowest precedence, for firmware images with a nonstandard unit layout.
func WithExtraSearchPaths(paths ...string) Option {
	return func(r *Resolver) {
		r.extra = append(r.extra, paths...)
	}
}

// Resolver enumerates search paths under a given root.
type Resolver struct {
	root  string
	extra []string
}

// New creates a Resolver rooted at root (typically "/" for the live host,
// or the mount point of an unpacked firmware image).
func New(root string, opts ...Option) *Resolver {
	r := &Resolver{root: filepath.Clean(root)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchPaths returns the ordered list of absolute search paths that exist
// under the root, highest precedence first. Missing paths are skipped
// without error (spec.md §4.A). "lib/systemd/system" is omitted from the
// result when it resolves to the same absolute path as
// "usr/lib/systemd/system" (a common symlink on most distributions), so
// that precedence-order callers never see the same directory twice.
func (r *Resolver) SearchPaths() []string {
	candidates := make([]string, 0, len(systemPaths)+len(r.extra))
	candidates = append(candidates, systemPaths...)
	candidates = append(candidates, r.extra...)

	var out []string
	seen := make(map[string]struct{})
	for _, suffix := range candidates {
		abs := filepath.Join(r.root, suffix)
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			real = abs
		}
		if _, dup := seen[real]; dup {
			continue
		}
		seen[real] = struct{}{}
		out = append(out, abs)
	}
	return out
}

// Root returns the filesystem root this resolver is confined to.
func (r *Resolver) Root() string {
	return r.root
}
