// Package vectortest holds the shared behavioral suite that every vector
// store backend must pass, plus a deterministic embedding fake so the
// suite runs without network access.
package vectortest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Dimensions is the vector width of the fake embedder.
const Dimensions = 16

// Embedder is a deterministic driven.EmbeddingService for tests. Each
// token hashes into a bucket of a fixed-width vector, so texts sharing
// words get high cosine similarity and identical texts embed identically.
type Embedder struct{}

// NewEmbedder creates the fake embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

// Embed implements driven.EmbeddingService.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, Dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return nil, errors.New("no tokens to embed")
	}
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%Dimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// EmbedBatch implements driven.EmbeddingService.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions implements driven.EmbeddingService.
func (e *Embedder) Dimensions() int { return Dimensions }

// ModelName implements driven.EmbeddingService.
func (e *Embedder) ModelName() string { return "test-hash-embedder" }

// Close implements driven.EmbeddingService.
func (e *Embedder) Close() error { return nil }

// Factory builds a fresh, empty store for each subtest.
type Factory func(t *testing.T) driven.VectorStore

// Chunks returns the fixture set shared by the contract subtests: three
// chunks for document A about databases, two for document B about
// sailing, tagged so scope filtering has something to select.
func Chunks() []domain.VectorChunk {
	return []domain.VectorChunk{
		{
			ChunkUID:    "a-1",
			DocumentUID: "doc-a",
			Text:        "postgres storage engine internals and page layout",
			TagIDs:      []string{"tag-db"},
			Metadata:    map[string]string{"lang": "en"},
		},
		{
			ChunkUID:    "a-2",
			DocumentUID: "doc-a",
			Text:        "postgres vacuum keeps storage from bloating",
			TagIDs:      []string{"tag-db"},
			Metadata:    map[string]string{"lang": "en"},
		},
		{
			ChunkUID:    "a-3",
			DocumentUID: "doc-a",
			Text:        "index selection in the postgres query planner",
			TagIDs:      []string{"tag-db"},
			Metadata:    map[string]string{"lang": "de"},
		},
		{
			ChunkUID:    "b-1",
			DocumentUID: "doc-b",
			Text:        "trimming the mainsail on a close reach",
			TagIDs:      []string{"tag-sail"},
			Metadata:    map[string]string{"lang": "en"},
		},
		{
			ChunkUID:    "b-2",
			DocumentUID: "doc-b",
			Text:        "anchoring technique for sandy bottoms",
			TagIDs:      []string{"tag-sail"},
			Metadata:    map[string]string{"lang": "en"},
		},
	}
}

// Run exercises the full driven.VectorStore contract against the store
// the factory builds.
func Run(t *testing.T, factory Factory) {
	t.Run("UpsertAndSearch", func(t *testing.T) { testUpsertAndSearch(t, factory) })
	t.Run("SearchDeterminism", func(t *testing.T) { testSearchDeterminism(t, factory) })
	t.Run("TagFilter", func(t *testing.T) { testTagFilter(t, factory) })
	t.Run("MetadataFilter", func(t *testing.T) { testMetadataFilter(t, factory) })
	t.Run("Retrievable", func(t *testing.T) { testRetrievable(t, factory) })
	t.Run("DeleteForDocument", func(t *testing.T) { testDeleteForDocument(t, factory) })
	t.Run("DocumentChunkCounts", func(t *testing.T) { testDocumentChunkCounts(t, factory) })
	t.Run("RejectsInvalidChunks", func(t *testing.T) { testRejectsInvalidChunks(t, factory) })
	t.Run("UpsertOverwrites", func(t *testing.T) { testUpsertOverwrites(t, factory) })
}

func seeded(t *testing.T, factory Factory) driven.VectorStore {
	t.Helper()
	store := factory(t)
	t.Cleanup(func() { store.Close() })
	stored, err := store.Upsert(context.Background(), Chunks())
	require.NoError(t, err)
	require.Len(t, stored, len(Chunks()))
	return store
}

func testUpsertAndSearch(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	hits, err := store.AnnSearch(context.Background(), "postgres storage", 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// Both storage chunks outrank the sailing material.
	assert.Equal(t, "doc-a", hits[0].Chunk.DocumentUID)
	assert.Equal(t, "doc-a", hits[1].Chunk.DocumentUID)

	// Ranks are dense and 1-based, scores non-increasing.
	for i, hit := range hits {
		assert.Equal(t, i+1, hit.Rank)
		if i > 0 {
			assert.LessOrEqual(t, hit.Score, hits[i-1].Score)
		}
	}
}

func testSearchDeterminism(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	first, err := store.AnnSearch(context.Background(), "postgres query planner", 5, nil)
	require.NoError(t, err)
	second, err := store.AnnSearch(context.Background(), "postgres query planner", 5, nil)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Chunk.ChunkUID, second[i].Chunk.ChunkUID)
		assert.Equal(t, first[i].Rank, second[i].Rank)
	}
}

func testTagFilter(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	hits, err := store.AnnSearch(context.Background(), "postgres storage", 10,
		&domain.SearchFilter{TagIDs: []string{"tag-sail"}})
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "doc-b", hit.Chunk.DocumentUID)
	}
}

func testMetadataFilter(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	hits, err := store.AnnSearch(context.Background(), "postgres query planner", 10,
		&domain.SearchFilter{MetadataTerms: map[string][]string{"lang": {"de"}}})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "a-3", hits[0].Chunk.ChunkUID)
}

func testRetrievable(t *testing.T, factory Factory) {
	store := seeded(t, factory)
	ctx := context.Background()

	require.NoError(t, store.SetRetrievable(ctx, "doc-a", false))

	hits, err := store.AnnSearch(ctx, "postgres storage", 10, nil)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.NotEqual(t, "doc-a", hit.Chunk.DocumentUID)
	}

	// Hidden chunks still count toward consistency checks.
	counts, err := store.DocumentChunkCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["doc-a"])

	require.NoError(t, store.SetRetrievable(ctx, "doc-a", true))
	hits, err = store.AnnSearch(ctx, "postgres storage", 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}

func testDeleteForDocument(t *testing.T, factory Factory) {
	store := seeded(t, factory)
	ctx := context.Background()

	require.NoError(t, store.DeleteForDocument(ctx, "doc-a"))

	hits, err := store.AnnSearch(ctx, "postgres storage", 10, nil)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.Equal(t, "doc-b", hit.Chunk.DocumentUID)
	}

	counts, err := store.DocumentChunkCounts(ctx)
	require.NoError(t, err)
	assert.NotContains(t, counts, "doc-a")
	assert.Equal(t, 2, counts["doc-b"])

	// Deleting an absent document is a no-op.
	require.NoError(t, store.DeleteForDocument(ctx, "doc-a"))
}

func testDocumentChunkCounts(t *testing.T, factory Factory) {
	store := seeded(t, factory)

	counts, err := store.DocumentChunkCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc-a": 3, "doc-b": 2}, counts)
}

func testRejectsInvalidChunks(t *testing.T, factory Factory) {
	store := factory(t)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	stored, err := store.Upsert(ctx, []domain.VectorChunk{
		{ChunkUID: "", DocumentUID: "doc-x", Text: "missing uid"},
	})
	require.Error(t, err)
	assert.Empty(t, stored)

	var partial *domain.PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Empty(t, partial.Stored)

	// Nothing was stored.
	counts, err := store.DocumentChunkCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func testUpsertOverwrites(t *testing.T, factory Factory) {
	store := seeded(t, factory)
	ctx := context.Background()

	updated := []domain.VectorChunk{{
		ChunkUID:    "a-1",
		DocumentUID: "doc-a",
		Text:        "anchoring technique and ground tackle sizing",
		TagIDs:      []string{"tag-db"},
	}}
	stored, err := store.Upsert(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1"}, stored)

	counts, err := store.DocumentChunkCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["doc-a"])

	hits, err := store.AnnSearch(ctx, "anchoring ground tackle", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, []string{"a-1", "b-2"}, hits[0].Chunk.ChunkUID)
}
