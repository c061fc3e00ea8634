package driven

import (
	"context"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// VectorStore is the contract every vector backend satisfies. Backend
// choice is a deployment concern: all engines behave identically under the
// shared contract test suite.
//
// Backends are safe for concurrent reads and for concurrent writes to
// different documents. Ordering of concurrent writes to the same document
// is a caller obligation (per-document advisory locking); the store does
// not serialize them. Searches observe an eventually consistent snapshot
// but never a half-written chunk.
type VectorStore interface {
	// Upsert stores chunks, embedding any whose Embedding is empty.
	// Idempotent by ChunkUID: re-adding replaces, never duplicates.
	// On any rejected chunk the whole call fails with a
	// *domain.PartialWriteError naming stored vs failed UIDs.
	Upsert(ctx context.Context, chunks []domain.VectorChunk) ([]string, error)

	// DeleteForDocument removes all chunks owned by the document.
	// Succeeds as a no-op when none exist. Once it returns, subsequent
	// searches do not return the document's chunks.
	DeleteForDocument(ctx context.Context, documentUID string) error

	// AnnSearch embeds the query and returns up to k hits ordered by
	// similarity descending, ties broken by ChunkUID ascending. Ranks
	// are 1-based and dense.
	AnnSearch(ctx context.Context, query string, k int, f *domain.SearchFilter) ([]domain.AnnHit, error)

	// SetRetrievable toggles search visibility of a document's chunks
	// without deleting them. No-op when the document has no chunks.
	SetRetrievable(ctx context.Context, documentUID string, retrievable bool) error

	// DocumentChunkCounts returns the number of stored chunks per
	// document UID, including non-retrievable chunks. Used by audit.
	DocumentChunkCounts(ctx context.Context) (map[string]int, error)

	// Name identifies the backend in errors and logs.
	Name() string

	// Close releases resources.
	Close() error
}

// LexicalSearcher is the optional keyword-search capability. The retrieval
// layer detects it with an interface assertion and degrades gracefully
// when absent; it never branches on backend names.
type LexicalSearcher interface {
	// LexicalSearch returns up to k hits ordered by keyword relevance
	// descending, ties broken by ChunkUID ascending. Ranks are 1-based
	// and dense.
	LexicalSearch(ctx context.Context, query string, k int, f *domain.SearchFilter) ([]domain.LexicalHit, error)
}
