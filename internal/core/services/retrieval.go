package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
	"github.com/corpora-io/corpora/internal/core/ports/driving"
	"github.com/corpora-io/corpora/internal/logger"
)

// Ensure Retrieval implements the interface.
var _ driving.RetrievalService = (*Retrieval)(nil)

// Tunables are the operationally tuned retrieval constants. They are
// configuration, not fixed behaviour.
type Tunables struct {
	// RRFK is the reciprocal-rank-fusion smoothing constant.
	RRFK int

	// CandidateMultiplier widens each source list to
	// limit * CandidateMultiplier before fusion.
	CandidateMultiplier int

	// MMRThreshold is the diversity bound: a candidate whose embedding
	// similarity to a kept chunk reaches it is dropped.
	MMRThreshold float64

	// StrictWidth is the per-source top-N the strict policy intersects.
	StrictWidth int

	// StrictMinOverlap is the smallest intersection the strict policy
	// accepts before returning an empty, low-confidence result.
	StrictMinOverlap int
}

// DefaultTunables returns the default retrieval constants.
func DefaultTunables() Tunables {
	return Tunables{
		RRFK:                60,
		CandidateMultiplier: 3,
		MMRThreshold:        0.95,
		StrictWidth:         20,
		StrictMinOverlap:    2,
	}
}

// Retrieval dispatches searches to a policy, runs them against the vector
// backend and enriches raw hits with document metadata.
type Retrieval struct {
	vectors  driven.VectorStore
	metadata driven.MetadataStore
	embedder driven.EmbeddingService
	scope    driven.ScopeResolver
	tunables Tunables
}

// NewRetrieval creates the retrieval service. The scope resolver is
// optional: when nil, tag scope identifiers are used as the chunk tag
// filter directly.
func NewRetrieval(
	vectors driven.VectorStore,
	metadata driven.MetadataStore,
	embedder driven.EmbeddingService,
	scope driven.ScopeResolver,
	tunables Tunables,
) *Retrieval {
	return &Retrieval{
		vectors:  vectors,
		metadata: metadata,
		embedder: embedder,
		scope:    scope,
		tunables: tunables,
	}
}

// Search implements driving.RetrievalService.
func (s *Retrieval) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.VectorSearchHit, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.VectorSearchHit{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	policy, err := domain.ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	logger.Info("Policy: %s, limit: %d, scope: %v", policy, limit, opts.TagScope)

	f, err := s.resolveScope(ctx, opts.TagScope)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	var candidates []fused
	switch policy {
	case domain.PolicyStrict:
		candidates, err = s.strictSearch(ctx, query, limit, f)
	case domain.PolicySemantic:
		candidates, err = s.semanticSearch(ctx, query, limit, f)
	default:
		candidates, err = s.hybridSearch(ctx, query, limit, f)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Policy produced %d candidates", len(candidates))
	return s.enrich(ctx, candidates), nil
}

// resolveScope turns tag scope identifiers into a chunk-level filter.
// A nil filter means no restriction.
func (s *Retrieval) resolveScope(ctx context.Context, tagScope []string) (*domain.SearchFilter, error) {
	if len(tagScope) == 0 {
		return nil, nil
	}
	if s.scope == nil {
		return &domain.SearchFilter{TagIDs: tagScope}, nil
	}
	resolved, err := s.scope.Resolve(ctx, tagScope)
	if err != nil {
		return nil, err
	}
	if len(resolved.TagIDs) == 0 && len(resolved.MetadataTerms) == 0 {
		return nil, nil
	}
	return &resolved, nil
}

// hybridSearch runs ANN and, capability permitting, lexical search in
// parallel, fuses them with RRF and diversifies with MMR. Lexical absence
// or failure degrades to ANN-only ranking; hybrid never hard-fails for
// lack of a lexical index.
func (s *Retrieval) hybridSearch(
	ctx context.Context, query string, limit int, f *domain.SearchFilter,
) ([]fused, error) {
	width := limit * s.tunables.CandidateMultiplier
	if width < limit {
		width = limit
	}

	lexical, hasLexical := s.vectors.(driven.LexicalSearcher)
	logger.Debug("Hybrid: width=%d, lexical capability=%t", width, hasLexical)

	var annHits []domain.AnnHit
	var lexHits []domain.LexicalHit
	var annErr, lexErr error

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		annHits, annErr = s.vectors.AnnSearch(ctx, query, width, f)
	}()
	if hasLexical {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lexHits, lexErr = lexical.LexicalSearch(ctx, query, width, f)
		}()
	}
	wg.Wait()

	if annErr != nil {
		return nil, fmt.Errorf("ann search: %w", annErr)
	}
	if lexErr != nil {
		logger.Warn("Hybrid: lexical search failed, degrading to ANN-only: %v", lexErr)
		lexHits = nil
	}

	lists := [][]ranked{annRanked(annHits)}
	if len(lexHits) > 0 {
		lists = append(lists, lexicalRanked(lexHits))
	}

	merged := reciprocalRankFusion(s.tunables.RRFK, lists...)
	logger.Debug("Hybrid: fused %d ANN + %d lexical into %d candidates",
		len(annHits), len(lexHits), len(merged))

	return maximalMarginalRelevance(merged, s.tunables.MMRThreshold, limit), nil
}

// strictSearch intersects the ANN and lexical top-N. A thin intersection
// yields an empty result: no confident answer, distinct from a backend
// failure. Result order follows ANN rank; no fusion scoring is applied.
func (s *Retrieval) strictSearch(
	ctx context.Context, query string, limit int, f *domain.SearchFilter,
) ([]fused, error) {
	lexical, ok := s.vectors.(driven.LexicalSearcher)
	if !ok {
		return nil, fmt.Errorf("strict policy on backend %s: %w",
			s.vectors.Name(), domain.ErrLexicalUnavailable)
	}

	width := s.tunables.StrictWidth
	if width < limit {
		width = limit
	}

	var annHits []domain.AnnHit
	var lexHits []domain.LexicalHit
	var annErr, lexErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		annHits, annErr = s.vectors.AnnSearch(ctx, query, width, f)
	}()
	go func() {
		defer wg.Done()
		lexHits, lexErr = lexical.LexicalSearch(ctx, query, width, f)
	}()
	wg.Wait()

	if annErr != nil {
		return nil, fmt.Errorf("ann search: %w", annErr)
	}
	if lexErr != nil {
		return nil, fmt.Errorf("lexical search: %w", lexErr)
	}

	intersection := intersectByAnnRank(annRanked(annHits), lexicalRanked(lexHits))
	logger.Debug("Strict: ANN/lexical overlap = %d (minimum %d)",
		len(intersection), s.tunables.StrictMinOverlap)

	if len(intersection) < s.tunables.StrictMinOverlap {
		logger.Info("Strict: intersection below minimum, returning empty result")
		return nil, nil
	}

	if len(intersection) > limit {
		intersection = intersection[:limit]
	}
	out := make([]fused, len(intersection))
	for i, r := range intersection {
		out[i] = fused{chunk: r.chunk, score: r.score, bestRank: r.rank}
	}
	return out, nil
}

// semanticSearch is the legacy ANN-only policy.
func (s *Retrieval) semanticSearch(
	ctx context.Context, query string, limit int, f *domain.SearchFilter,
) ([]fused, error) {
	hits, err := s.vectors.AnnSearch(ctx, query, limit, f)
	if err != nil {
		return nil, fmt.Errorf("ann search: %w", err)
	}
	out := make([]fused, len(hits))
	for i, h := range hits {
		out[i] = fused{chunk: h.Chunk, score: h.Score, bestRank: h.Rank}
	}
	return out, nil
}

// enrich joins each candidate with its owning document record. A hit whose
// document is missing from the metadata store is returned with degraded
// identity fields rather than dropped: silently hiding it would mask the
// inconsistency from observability (the audit subsystem flags it).
func (s *Retrieval) enrich(ctx context.Context, candidates []fused) []domain.VectorSearchHit {
	retrievedAt := time.Now().UTC()
	model := ""
	if s.embedder != nil {
		model = s.embedder.ModelName()
	}

	cache := make(map[string]*domain.DocumentRecord)
	hits := make([]domain.VectorSearchHit, 0, len(candidates))

	for i, cand := range candidates {
		hit := domain.VectorSearchHit{
			ChunkUID:       cand.chunk.ChunkUID,
			DocumentUID:    cand.chunk.DocumentUID,
			Text:           cand.chunk.Text,
			Metadata:       cand.chunk.Metadata,
			Score:          cand.score,
			Rank:           i + 1,
			EmbeddingModel: model,
			RetrievedAt:    retrievedAt,
		}

		doc, seen := cache[cand.chunk.DocumentUID]
		if !seen {
			var err error
			doc, err = s.metadata.Get(ctx, cand.chunk.DocumentUID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					logger.Warn("Enrichment lookup failed for document %s: %v",
						cand.chunk.DocumentUID, err)
				} else {
					logger.Warn("Hit %s references missing document %s",
						cand.chunk.ChunkUID, cand.chunk.DocumentUID)
				}
				doc = nil
			}
			cache[cand.chunk.DocumentUID] = doc
		}

		if doc != nil {
			hit.DocumentName = doc.Name
			hit.DocumentTitle = doc.Title
			hit.TagNames = doc.TagNames()
			hit.Confidential = doc.Confidential
			hit.License = doc.License
			hit.SourceURL = doc.Source.URL
		}

		hits = append(hits, hit)
	}

	return hits
}
