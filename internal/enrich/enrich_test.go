package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trly/sysdmap/internal/model"
)

type stubEnricher struct {
	enrichment model.Enrichment
	err        error
}

func (s stubEnricher) Enrich(context.Context, string) (model.Enrichment, error) {
	return s.enrichment, s.err
}

func TestNilRegistryYieldsEmpty(t *testing.T) {
	var reg *Registry
	assert.Equal(t, model.Enrichment{}, reg.Enrich(context.Background(), "/bin/foo"))
}

func TestRegistryFallsThroughOnError(t *testing.T) {
	reg := NewRegistry(
		stubEnricher{err: errors.New("declined")},
		stubEnricher{enrichment: model.Enrichment{FileHash: "abc"}},
	)
	got := reg.Enrich(context.Background(), "/bin/foo")
	assert.Equal(t, "abc", got.FileHash)
}

func TestRegistryNoEnrichersYieldsEmpty(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, model.Enrichment{}, reg.Enrich(context.Background(), "/bin/foo"))
}
