package domain

// VectorChunk is the unit of retrieval: a span of document text together
// with its embedding and the attributes search can filter on.
type VectorChunk struct {
	// ChunkUID is the stable, globally unique identifier for this chunk.
	// Re-upserting the same ChunkUID replaces the stored chunk.
	ChunkUID string

	// DocumentUID identifies the owning document.
	DocumentUID string

	// Text is the chunk content.
	Text string

	// Embedding is the fixed-dimension vector representation.
	// When empty, the backend embeds Text during upsert.
	Embedding []float32

	// TagIDs is the set of scope identifiers the chunk belongs to.
	TagIDs []string

	// Metadata contains flat key/value attributes (page, section,
	// source locator).
	Metadata map[string]string

	// Retrievable controls whether the chunk is visible to search.
	// Chunks are retrievable by default; SetRetrievable toggles this
	// without deleting the index entry.
	Retrievable bool
}

// SearchFilter scopes a search at query time. A zero filter matches
// every retrievable chunk.
type SearchFilter struct {
	// TagIDs restricts candidates to chunks whose TagIDs intersect
	// this set. Empty means no tag restriction.
	TagIDs []string

	// MetadataTerms restricts by equality-or-membership on flat chunk
	// metadata fields: a chunk passes when, for every key, its value
	// equals one of the accepted values.
	MetadataTerms map[string][]string
}

// Matches reports whether the chunk passes the filter. Retrievability is
// checked separately by the backend.
func (f *SearchFilter) Matches(c *VectorChunk) bool {
	if f == nil {
		return true
	}
	if len(f.TagIDs) > 0 {
		if !intersects(c.TagIDs, f.TagIDs) {
			return false
		}
	}
	for key, accepted := range f.MetadataTerms {
		val, ok := c.Metadata[key]
		if !ok {
			return false
		}
		found := false
		for _, a := range accepted {
			if val == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
