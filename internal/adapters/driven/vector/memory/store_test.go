package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/adapters/driven/vector/vectortest"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

func TestStore_Contract(t *testing.T) {
	vectortest.Run(t, func(_ *testing.T) driven.VectorStore {
		return New(vectortest.NewEmbedder())
	})
}

func TestStore_LexicalSearch(t *testing.T) {
	store := New(vectortest.NewEmbedder())
	defer store.Close()
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
		assert.Greater(t, hit.Score, 0.0)
	}
}

func TestStore_LexicalSearchNoMatch(t *testing.T) {
	store := New(vectortest.NewEmbedder())
	defer store.Close()
	ctx := context.Background()

	_, err := store.Upsert(ctx, vectortest.Chunks())
	require.NoError(t, err)

	hits, err := store.LexicalSearch(ctx, "zeppelin", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
