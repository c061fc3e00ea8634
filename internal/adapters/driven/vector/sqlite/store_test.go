package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/adapters/driven/vector/vectortest"
	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

func TestStore_Contract(t *testing.T) {
	vectortest.Run(t, func(t *testing.T) driven.VectorStore {
		store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), vectortest.NewEmbedder())
		require.NoError(t, err)
		return store
	})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"), vectortest.NewEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_LexicalSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, vectortest.Chunks())
	require.NoError(t, err)

	var lexical driven.LexicalSearcher = store
	hits, err := lexical.LexicalSearch(ctx, "postgres vacuum", 10, nil)
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	assert.Equal(t, "a-2", hits[0].Chunk.ChunkUID)
	for i, hit := range hits {
		assert.Equal(t, i+1, hit.Rank)
	}
}

func TestStore_LexicalSearchRespectsFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, vectortest.Chunks())
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "postgres", 10,
		&domain.SearchFilter{MetadataTerms: map[string][]string{"lang": {"de"}}})
	require.NoError(t, err)
	for _, hit := range hits {
		assert.Equal(t, "a-3", hit.Chunk.ChunkUID)
	}
}

func TestStore_LexicalSearchQuotesTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, vectortest.Chunks())
	require.NoError(t, err)

	// FTS5 operators in the query must not reach the MATCH expression.
	hits, err := store.LexicalSearch(ctx, `postgres AND "vacuum" OR (planner)`, 10, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestStore_LexicalSearchFiltersBeyondFirstFetch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Several highly relevant chunks outrank the only tagged one, pushing
	// it past the initial candidate fetch for k=1.
	chunks := []domain.VectorChunk{
		{ChunkUID: "n-1", DocumentUID: "doc-noise", Text: "postgres postgres postgres", TagIDs: []string{"tag-common"}},
		{ChunkUID: "n-2", DocumentUID: "doc-noise", Text: "postgres postgres tuning", TagIDs: []string{"tag-common"}},
		{ChunkUID: "n-3", DocumentUID: "doc-noise", Text: "postgres postgres indexes", TagIDs: []string{"tag-common"}},
		{ChunkUID: "n-4", DocumentUID: "doc-noise", Text: "postgres postgres planner", TagIDs: []string{"tag-common"}},
		{ChunkUID: "n-5", DocumentUID: "doc-noise", Text: "postgres postgres storage", TagIDs: []string{"tag-common"}},
		{ChunkUID: "r-1", DocumentUID: "doc-rare", Text: "one passing postgres mention inside a much longer sentence about unrelated things", TagIDs: []string{"tag-rare"}},
	}
	_, err := store.Upsert(ctx, chunks)
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "postgres", 1,
		&domain.SearchFilter{TagIDs: []string{"tag-rare"}})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "r-1", hits[0].Chunk.ChunkUID)
}

func TestStore_LexicalSearchNoMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, vectortest.Chunks())
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "zeppelin", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
