package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/core/domain"
)

func rankedList(uids ...string) []ranked {
	out := make([]ranked, len(uids))
	for i, uid := range uids {
		out[i] = ranked{
			chunk: domain.VectorChunk{ChunkUID: uid, DocumentUID: "doc"},
			score: 1.0 / float64(i+1),
			rank:  i + 1,
		}
	}
	return out
}

func TestReciprocalRankFusion_DoubleListedBeatsSingleTop(t *testing.T) {
	// A chunk at rank 1 and 3 across both lists accumulates
	// 1/61 + 1/63, which outranks a chunk holding a single rank 1.
	ann := rankedList("both", "ann-only")
	lexical := []ranked{
		{chunk: domain.VectorChunk{ChunkUID: "lex-only"}, rank: 1},
		{chunk: domain.VectorChunk{ChunkUID: "other"}, rank: 2},
		{chunk: domain.VectorChunk{ChunkUID: "both"}, rank: 3},
	}

	out := reciprocalRankFusion(60, ann, lexical)
	require.NotEmpty(t, out)

	assert.Equal(t, "both", out[0].chunk.ChunkUID)
	assert.InDelta(t, 1.0/61+1.0/63, out[0].score, 1e-12)
}

func TestReciprocalRankFusion_TieBreaksByBestRankThenUID(t *testing.T) {
	// Two chunks each appear once at rank 2: identical scores, so the
	// one that also held a better rank wins; equal ranks fall back to UID.
	listA := []ranked{
		{chunk: domain.VectorChunk{ChunkUID: "b"}, rank: 2},
	}
	listB := []ranked{
		{chunk: domain.VectorChunk{ChunkUID: "a"}, rank: 2},
	}

	out := reciprocalRankFusion(60, listA, listB)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].chunk.ChunkUID)
	assert.Equal(t, "b", out[1].chunk.ChunkUID)
}

func TestReciprocalRankFusion_KeepsEmbeddingBearingCopy(t *testing.T) {
	withVec := []ranked{{
		chunk: domain.VectorChunk{ChunkUID: "x", Embedding: []float32{1, 0}},
		rank:  1,
	}}
	withoutVec := []ranked{{
		chunk: domain.VectorChunk{ChunkUID: "x"},
		rank:  1,
	}}

	out := reciprocalRankFusion(60, withoutVec, withVec)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].chunk.Embedding)
}

func TestReciprocalRankFusion_EmptyLists(t *testing.T) {
	assert.Empty(t, reciprocalRankFusion(60))
	assert.Empty(t, reciprocalRankFusion(60, nil, nil))
}

func TestMaximalMarginalRelevance_DropsNearDuplicates(t *testing.T) {
	cands := []fused{
		{chunk: domain.VectorChunk{ChunkUID: "a", Embedding: []float32{1, 0}}, score: 3},
		{chunk: domain.VectorChunk{ChunkUID: "a2", Embedding: []float32{0.999, 0.001}}, score: 2},
		{chunk: domain.VectorChunk{ChunkUID: "b", Embedding: []float32{0, 1}}, score: 1},
	}

	kept := maximalMarginalRelevance(cands, 0.95, 3)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].chunk.ChunkUID)
	assert.Equal(t, "b", kept[1].chunk.ChunkUID)
}

func TestMaximalMarginalRelevance_KeepsUnmeasurableCandidates(t *testing.T) {
	cands := []fused{
		{chunk: domain.VectorChunk{ChunkUID: "a", Embedding: []float32{1, 0}}, score: 2},
		{chunk: domain.VectorChunk{ChunkUID: "no-vec"}, score: 1},
	}

	kept := maximalMarginalRelevance(cands, 0.95, 2)
	assert.Len(t, kept, 2)
}

func TestMaximalMarginalRelevance_RespectsK(t *testing.T) {
	cands := []fused{
		{chunk: domain.VectorChunk{ChunkUID: "a", Embedding: []float32{1, 0}}},
		{chunk: domain.VectorChunk{ChunkUID: "b", Embedding: []float32{0, 1}}},
		{chunk: domain.VectorChunk{ChunkUID: "c", Embedding: []float32{1, 1}}},
	}

	assert.Len(t, maximalMarginalRelevance(cands, 0.999, 2), 2)
	assert.Empty(t, maximalMarginalRelevance(cands, 0.999, 0))
}

func TestIntersectByAnnRank(t *testing.T) {
	ann := rankedList("a", "b", "c")
	lexical := rankedList("c", "a")

	out := intersectByAnnRank(ann, lexical)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].chunk.ChunkUID)
	assert.Equal(t, "c", out[1].chunk.ChunkUID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 2}, []float32{1}))
}
