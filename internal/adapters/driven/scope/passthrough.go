// Package scope adapts the external tagging system to the retrieval
// service. The passthrough resolver treats scope identifiers as chunk tag
// ids directly; deployments with a real tag service substitute their own
// driven.ScopeResolver.
package scope

import (
	"context"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Passthrough implements the interface.
var _ driven.ScopeResolver = (*Passthrough)(nil)

// Passthrough maps tag scope identifiers straight onto the chunk tag
// filter.
type Passthrough struct{}

// NewPassthrough creates the passthrough resolver.
func NewPassthrough() *Passthrough { return &Passthrough{} }

// Resolve implements driven.ScopeResolver.
func (p *Passthrough) Resolve(_ context.Context, tagScope []string) (domain.SearchFilter, error) {
	return domain.SearchFilter{TagIDs: tagScope}, nil
}
