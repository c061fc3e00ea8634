package driven

import (
	"context"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// ScopeResolver translates caller-facing tag scope identifiers (library or
// category ids) into a chunk-level search filter. The tagging system is an
// external collaborator; the default adapter passes tag ids through
// unchanged.
type ScopeResolver interface {
	// Resolve maps scope identifiers to a SearchFilter. An empty scope
	// resolves to an unrestricted filter ("all tags visible to the
	// caller").
	Resolve(ctx context.Context, tagScope []string) (domain.SearchFilter, error)
}
