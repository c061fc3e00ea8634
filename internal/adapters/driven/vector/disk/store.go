// Package disk provides the embedded on-disk vector engine: a
// single-process brute-force index kept in memory and persisted to a local
// file on every mutation. Suited to small and medium corpora that must
// survive restarts without running a database.
package disk

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/corpora-io/corpora/internal/adapters/driven/vector"
	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interface. No LexicalSearcher assertion:
// the retrieval layer degrades to ANN-only ranking on this engine.
var _ driven.VectorStore = (*Store)(nil)

// Store is a file-persisted implementation of driven.VectorStore.
type Store struct {
	mu       sync.RWMutex
	path     string
	chunks   map[string]domain.VectorChunk
	embedder driven.EmbeddingService
	closed   bool
}

// Open loads the index file at path, creating parent directories as
// needed. A missing file starts an empty index.
func Open(path string, embedder driven.EmbeddingService) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("disk: index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("disk: create index directory: %w", err)
	}

	s := &Store{
		path:     path,
		chunks:   make(map[string]domain.VectorChunk),
		embedder: embedder,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Name implements driven.VectorStore.
func (s *Store) Name() string { return "disk" }

// Close implements driven.VectorStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Upsert implements driven.VectorStore.
func (s *Store) Upsert(ctx context.Context, chunks []domain.VectorChunk) ([]string, error) {
	prepared, err := vector.PrepareChunks(ctx, s.embedder, s.Name(), chunks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	uids := make([]string, len(prepared))
	for i, c := range prepared {
		s.chunks[c.ChunkUID] = c
		uids[i] = c.ChunkUID
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return uids, nil
}

// DeleteForDocument implements driven.VectorStore.
func (s *Store) DeleteForDocument(_ context.Context, documentUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	removed := false
	for uid, c := range s.chunks {
		if c.DocumentUID == documentUID {
			delete(s.chunks, uid)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	return s.persist()
}

// SetRetrievable implements driven.VectorStore.
func (s *Store) SetRetrievable(_ context.Context, documentUID string, retrievable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	changed := false
	for uid, c := range s.chunks {
		if c.DocumentUID == documentUID && c.Retrievable != retrievable {
			c.Retrievable = retrievable
			s.chunks[uid] = c
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persist()
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
		return nil, fmt.Errorf("disk: embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

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

// load reads the gob-encoded index file.
func (s *Store) load() error {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("disk: open index: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&s.chunks); err != nil {
		return fmt.Errorf("disk: decode index %s: %w", s.path, err)
	}
	return nil
}

// persist writes the index atomically: encode to a temp file, then rename
// over the old one. Readers never observe a half-written index.
// Caller holds the write lock.
func (s *Store) persist() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*")
	if err != nil {
		return fmt.Errorf("disk: create temp index: %w", err)
	}

	if err := gob.NewEncoder(tmp).Encode(s.chunks); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("disk: encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("disk: close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("disk: replace index: %w", err)
	}
	return nil
}
