// Package driving provides interfaces for application entry points
// (primary/inbound ports).
package driving

import (
	"context"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// RetrievalService is the public search entry point.
type RetrievalService interface {
	// Search resolves the tag scope, dispatches to the selected policy
	// and returns enriched hits ranked 1..n. It returns a possibly
	// empty ranked list or a clear error, never a partially ranked one.
	// A strict-policy empty result is a normal low-confidence outcome,
	// not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.VectorSearchHit, error)
}
