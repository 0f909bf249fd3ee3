// Package enrich defines the artifact-enricher hook of spec.md §6.5: a
// pluggable interface the Master-Struct Assembler calls with each
// ExecStart*/ExecStop/ExecReload command's resolved executable path, kept
// deliberately opaque to the core. Binary inspection (library extraction,
// string scraping, hashing) has no implementation here — that remains the
// explicitly out-of-scope "artifact enricher" of spec.md §1.
package enrich

import (
	"context"

	"github.com/trly/sysdmap/internal/model"
)

// Enricher inspects one resolved executable path and returns whatever it
// can attach to the directive's origin record. An error means the hook
// declined (or failed) to enrich that path; the caller falls through to
// the next registered enricher, or to an empty Enrichment if none answer.
type Enricher interface {
	Enrich(ctx context.Context, execPath string) (model.Enrichment, error)
}

// Registry holds zero or more Enrichers, tried in registration order. A
// nil *Registry (or one with no members) behaves as the spec's "absence of
// a hook" case: every call yields an empty Enrichment.
type Registry struct {
	enrichers []Enricher
}

// NewRegistry returns a Registry trying each enricher in order.
func NewRegistry(enrichers ...Enricher) *Registry {
	return &Registry{enrichers: enrichers}
}

// Enrich tries each registered Enricher in turn and returns the first
// successful result, or an empty Enrichment if none succeed.
func (r *Registry) Enrich(ctx context.Context, execPath string) model.Enrichment {
	if r == nil {
		return model.Enrichment{}
	}
	for _, e := range r.enrichers {
		if enrichment, err := e.Enrich(ctx, execPath); err == nil {
			return enrichment
		}
	}
	return model.Enrichment{}
}
