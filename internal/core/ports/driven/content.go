package driven

import "context"

// ContentStore is the audit-facing surface of the content-blob store.
// Blob transport is owned by an external collaborator; audit only needs
// existence checks, enumeration and orphan removal.
type ContentStore interface {
	// Exists reports whether a content blob is stored for the document.
	Exists(ctx context.Context, documentUID string) (bool, error)

	// List returns the document UIDs of all stored blobs.
	List(ctx context.Context) ([]string, error)

	// Delete removes the document's blob. No-op when absent.
	Delete(ctx context.Context, documentUID string) error
}
