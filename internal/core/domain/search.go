package domain

import (
	"fmt"
	"time"
)

// SearchPolicy selects the retrieval strategy.
type SearchPolicy string

const (
	// PolicyHybrid fuses ANN and lexical rankings with reciprocal rank
	// fusion, then diversifies with MMR. This is the default policy.
	PolicyHybrid SearchPolicy = "hybrid"

	// PolicyStrict returns only chunks present in both the ANN and the
	// lexical top-N. An intersection below the configured minimum yields
	// an empty result, signalling low confidence.
	PolicyStrict SearchPolicy = "strict"

	// PolicySemantic is the legacy ANN-only policy: no fusion, no MMR.
	PolicySemantic SearchPolicy = "semantic"
)

// ParsePolicy converts a policy name to a SearchPolicy. An empty name
// selects the hybrid default.
func ParsePolicy(name string) (SearchPolicy, error) {
	switch SearchPolicy(name) {
	case "":
		return PolicyHybrid, nil
	case PolicyHybrid, PolicyStrict, PolicySemantic:
		return SearchPolicy(name), nil
	default:
		return "", fmt.Errorf("%w: unknown search policy %q", ErrInvalidInput, name)
	}
}

// SearchOptions configures a retrieval request.
type SearchOptions struct {
	// Limit is the maximum number of hits to return.
	Limit int

	// TagScope restricts the search to documents carrying any of these
	// tags. Empty means all tags visible to the caller.
	TagScope []string

	// Policy is the retrieval strategy. Zero value means hybrid.
	Policy SearchPolicy
}

// AnnHit is a raw result from a backend's approximate-nearest-neighbour
// search primitive.
type AnnHit struct {
	Chunk VectorChunk

	// Score is backend-defined similarity, non-increasing with rank.
	Score float64

	// Rank is 1-based and dense within one result list.
	Rank int
}

// LexicalHit is a raw result from a backend's keyword search primitive.
type LexicalHit struct {
	Chunk VectorChunk

	// Score is backend-defined relevance, non-increasing with rank.
	Score float64

	// Rank is 1-based and dense within one result list.
	Rank int
}

// VectorSearchHit is the externally returned retrieval unit: chunk content
// enriched with the owning document's identity, provenance and access
// flags. When the owning document cannot be found in the metadata store,
// the document-derived fields are left at their zero values and the hit is
// still returned.
type VectorSearchHit struct {
	ChunkUID    string            `json:"chunk_uid"`
	DocumentUID string            `json:"document_uid"`
	Text        string            `json:"text"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	DocumentName  string   `json:"document_name,omitempty"`
	DocumentTitle string   `json:"document_title,omitempty"`
	TagNames      []string `json:"tag_names,omitempty"`
	Confidential  bool     `json:"confidential"`
	License       string   `json:"license,omitempty"`
	SourceURL     string   `json:"source_url,omitempty"`

	// Score is the policy-defined relevance; Rank is 1-based and dense
	// within one response.
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`

	EmbeddingModel string    `json:"embedding_model,omitempty"`
	RetrievedAt    time.Time `json:"retrieved_at"`
}
