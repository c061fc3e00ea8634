package services

import (
	"math"
	"sort"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// ranked is one entry of a single-source ranked list.
type ranked struct {
	chunk domain.VectorChunk
	score float64
	rank  int
}

// fused is a candidate after rank fusion.
type fused struct {
	chunk    domain.VectorChunk
	score    float64
	bestRank int
}

func annRanked(hits []domain.AnnHit) []ranked {
	out := make([]ranked, len(hits))
	for i, h := range hits {
		out[i] = ranked{chunk: h.Chunk, score: h.Score, rank: h.Rank}
	}
	return out
}

func lexicalRanked(hits []domain.LexicalHit) []ranked {
	out := make([]ranked, len(hits))
	for i, h := range hits {
		out[i] = ranked{chunk: h.Chunk, score: h.Score, rank: h.Rank}
	}
	return out
}

// reciprocalRankFusion merges ranked lists: a chunk at rank r in a source
// list contributes 1/(rrfK+r), and its fused score is the sum of its
// contributions. Output order: fused score descending, then the best
// (lowest) rank held in any single source, then ChunkUID.
func reciprocalRankFusion(rrfK int, lists ...[]ranked) []fused {
	scores := make(map[string]float64)
	best := make(map[string]int)
	chunks := make(map[string]domain.VectorChunk)

	for _, list := range lists {
		for _, r := range list {
			uid := r.chunk.ChunkUID
			scores[uid] += 1.0 / float64(rrfK+r.rank)
			if prev, ok := best[uid]; !ok || r.rank < prev {
				best[uid] = r.rank
			}
			// Prefer the copy that carries an embedding so the MMR
			// pass can measure similarity.
			if c, ok := chunks[uid]; !ok || len(c.Embedding) == 0 {
				chunks[uid] = r.chunk
			}
		}
	}

	out := make([]fused, 0, len(scores))
	for uid, score := range scores {
		out = append(out, fused{chunk: chunks[uid], score: score, bestRank: best[uid]})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bestRank != out[j].bestRank {
			return out[i].bestRank < out[j].bestRank
		}
		return out[i].chunk.ChunkUID < out[j].chunk.ChunkUID
	})

	return out
}

// maximalMarginalRelevance walks candidates in fused order and keeps one
// only when its embedding similarity to every already-kept candidate stays
// below the diversity threshold, until k are kept or candidates run out.
// Candidates without embeddings cannot be measured and are kept.
func maximalMarginalRelevance(cands []fused, threshold float64, k int) []fused {
	if k <= 0 {
		return nil
	}

	kept := make([]fused, 0, k)
	for _, cand := range cands {
		if len(kept) >= k {
			break
		}
		diverse := true
		for _, existing := range kept {
			if cosineSimilarity(cand.chunk.Embedding, existing.chunk.Embedding) >= threshold {
				diverse = false
				break
			}
		}
		if diverse {
			kept = append(kept, cand)
		}
	}
	return kept
}

// intersectByAnnRank keeps the ANN hits whose chunks also appear in the
// lexical list, preserving ANN order. Used by the strict policy.
func intersectByAnnRank(ann, lexical []ranked) []ranked {
	inLexical := make(map[string]bool, len(lexical))
	for _, r := range lexical {
		inLexical[r.chunk.ChunkUID] = true
	}

	out := make([]ranked, 0, len(ann))
	for _, r := range ann {
		if inLexical[r.chunk.ChunkUID] {
			out = append(out, r)
		}
	}
	return out
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 for mismatched or empty inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
