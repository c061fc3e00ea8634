package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// stubEmbedder returns a constant vector, or fails on demand.
type stubEmbedder struct {
	dim     int
	err     error
	batches int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batches++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
		out[i][0] = 1
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int   { return s.dim }
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Close() error      { return nil }

func TestPrepareChunks_EmbedsMissingVectors(t *testing.T) {
	embedder := &stubEmbedder{dim: 4}

	prepared, err := PrepareChunks(context.Background(), embedder, "test", []domain.VectorChunk{
		{ChunkUID: "c-1", DocumentUID: "doc-a", Text: "needs embedding"},
		{ChunkUID: "c-2", DocumentUID: "doc-a", Text: "already embedded", Embedding: []float32{0, 0, 0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, prepared, 2)

	assert.Equal(t, []float32{1, 0, 0, 0}, prepared[0].Embedding)
	assert.Equal(t, []float32{0, 0, 0, 1}, prepared[1].Embedding)
	assert.True(t, prepared[0].Retrievable)
	assert.True(t, prepared[1].Retrievable)
	// Only the chunk without a vector went to the embedder.
	assert.Equal(t, 1, embedder.batches)
}

func TestPrepareChunks_RejectsInvalidChunks(t *testing.T) {
	embedder := &stubEmbedder{dim: 4}

	_, err := PrepareChunks(context.Background(), embedder, "test", []domain.VectorChunk{
		{ChunkUID: "", DocumentUID: "doc-a", Text: "no uid"},
		{ChunkUID: "c-2", DocumentUID: "", Text: "no document"},
		{ChunkUID: "c-3", DocumentUID: "doc-a", Text: ""},
		{ChunkUID: "c-4", DocumentUID: "doc-a", Text: "wrong dims", Embedding: []float32{1, 2}},
		{ChunkUID: "c-5", DocumentUID: "doc-a", Text: "fine"},
	})

	var partial *domain.PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "test", partial.Backend)
	assert.Empty(t, partial.Stored)
	assert.Len(t, partial.Failed, 4)
	assert.Contains(t, partial.Failed["c-4"], "dimensions")
	// The valid chunk was never embedded: the whole batch fails.
	assert.Equal(t, 0, embedder.batches)
}

func TestPrepareChunks_EmbedderFailureFailsBatch(t *testing.T) {
	embedder := &stubEmbedder{dim: 4, err: errors.New("quota exceeded")}

	_, err := PrepareChunks(context.Background(), embedder, "test", []domain.VectorChunk{
		{ChunkUID: "c-1", DocumentUID: "doc-a", Text: "text"},
	})

	var partial *domain.PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Contains(t, partial.Failed["c-1"], "quota exceeded")
}

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}

	decoded, err := DecodeVector(EncodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestDecodeVector_RejectsTruncatedBlob(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 1}, []float32{2, 2}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine(nil, []float32{1}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}
