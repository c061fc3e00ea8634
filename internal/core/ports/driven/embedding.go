// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text. It is a shared,
// stateless resource: backends call it concurrently for upsert embedding
// and query embedding, and none may assume exclusive ownership.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. More efficient
	// than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model, recorded on
	// every returned search hit.
	ModelName() string

	// Close releases resources.
	Close() error
}
