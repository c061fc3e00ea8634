package driven

import (
	"context"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// MetadataStore persists one DocumentRecord per document UID, keyed for
// point lookup, with a secondary access path for tag membership.
type MetadataStore interface {
	// Save stores or updates a record. CreatedAt (when zero) and
	// UpdatedAt are stamped on the stored copy; the caller's record is
	// never modified.
	Save(ctx context.Context, record *domain.DocumentRecord) error

	// Get retrieves a record by UID. Returns domain.ErrNotFound when
	// the document has no metadata record.
	Get(ctx context.Context, uid string) (*domain.DocumentRecord, error)

	// Query returns records matching a filter expression of
	// field[__operator] entries combined with AND semantics. Unknown
	// fields fail with a *domain.ValidationError rather than silently
	// matching nothing. Results are ordered by UID for determinism.
	Query(ctx context.Context, expr map[string]any) ([]domain.DocumentRecord, error)

	// Delete removes a record. The document's vectors and content blob
	// are owned elsewhere and remain until audit reconciles them.
	Delete(ctx context.Context, uid string) error

	// List returns all records, ordered by UID.
	List(ctx context.Context) ([]domain.DocumentRecord, error)

	// Close releases resources.
	Close() error
}
