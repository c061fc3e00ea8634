// Package memory provides an ephemeral in-process vector engine for
// development and testing. Nothing is persisted; the index lives and dies
// with the process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/corpora-io/corpora/internal/adapters/driven/vector"
	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore     = (*Store)(nil)
	_ driven.LexicalSearcher = (*Store)(nil)
)

// Store is an in-memory implementation of driven.VectorStore with a naive
// term-frequency lexical capability.
type Store struct {
	mu       sync.RWMutex
	chunks   map[string]domain.VectorChunk
	embedder driven.EmbeddingService
}

// New creates a new in-memory vector store.
func New(embedder driven.EmbeddingService) *Store {
	return &Store{
		chunks:   make(map[string]domain.VectorChunk),
		embedder: embedder,
	}
}

// Name implements driven.VectorStore.
func (s *Store) Name() string { return "memory" }

// Close implements driven.VectorStore.
func (s *Store) Close() error { return nil }

// Upsert implements driven.VectorStore. Chunks are validated and embedded
// before any of them is stored, so a rejected chunk fails the whole batch
// without partial writes.
func (s *Store) Upsert(ctx context.Context, chunks []domain.VectorChunk) ([]string, error) {
	prepared, err := vector.PrepareChunks(ctx, s.embedder, s.Name(), chunks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uids := make([]string, len(prepared))
	for i, c := range prepared {
		s.chunks[c.ChunkUID] = c
		uids[i] = c.ChunkUID
	}
	return uids, nil
}

// DeleteForDocument implements driven.VectorStore.
func (s *Store) DeleteForDocument(_ context.Context, documentUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uid, c := range s.chunks {
		if c.DocumentUID == documentUID {
			delete(s.chunks, uid)
		}
	}
	return nil
}

// SetRetrievable implements driven.VectorStore.
func (s *Store) SetRetrievable(_ context.Context, documentUID string, retrievable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for uid, c := range s.chunks {
		if c.DocumentUID == documentUID {
			c.Retrievable = retrievable
			s.chunks[uid] = c
		}
	}
	return nil
}

// DocumentChunkCounts implements driven.VectorStore.
func (s *Store) DocumentChunkCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.chunks {
		counts[c.DocumentUID]++
	}
	return counts, nil
}

// AnnSearch implements driven.VectorStore with brute-force cosine scoring.
func (s *Store) AnnSearch(
	ctx context.Context, query string, k int, f *domain.SearchFilter,
) ([]domain.AnnHit, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]domain.AnnHit, 0, len(s.chunks))
	for _, c := range s.chunks {
		if !c.Retrievable || !f.Matches(&c) {
			continue
		}
		hits = append(hits, domain.AnnHit{Chunk: c, Score: vector.Cosine(queryVec, c.Embedding)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkUID < hits[j].Chunk.ChunkUID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

// LexicalSearch implements driven.LexicalSearcher with term-frequency
// scoring over lowercased tokens. Chunks matching no query term are
// omitted.
func (s *Store) LexicalSearch(
	_ context.Context, query string, k int, f *domain.SearchFilter,
) ([]domain.LexicalHit, error) {
	if k <= 0 {
		return nil, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]domain.LexicalHit, 0)
	for _, c := range s.chunks {
		if !c.Retrievable || !f.Matches(&c) {
			continue
		}
		score := termFrequency(terms, tokenize(c.Text))
		if score == 0 {
			continue
		}
		hits = append(hits, domain.LexicalHit{Chunk: c, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkUID < hits[j].Chunk.ChunkUID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

func termFrequency(queryTerms, docTerms []string) float64 {
	counts := make(map[string]int, len(docTerms))
	for _, t := range docTerms {
		counts[t]++
	}
	var score float64
	for _, t := range queryTerms {
		score += float64(counts[t])
	}
	return score
}
