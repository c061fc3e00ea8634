package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchFilter_Matches(t *testing.T) {
	chunk := &VectorChunk{
		ChunkUID:    "c-1",
		DocumentUID: "doc-a",
		TagIDs:      []string{"tag-1", "tag-2"},
		Metadata:    map[string]string{"lang": "en", "section": "intro"},
	}

	cases := []struct {
		name   string
		filter *SearchFilter
		want   bool
	}{
		{"nil filter matches all", nil, true},
		{"zero filter matches all", &SearchFilter{}, true},
		{"tag intersection", &SearchFilter{TagIDs: []string{"tag-2", "tag-9"}}, true},
		{"no tag intersection", &SearchFilter{TagIDs: []string{"tag-9"}}, false},
		{"metadata equality", &SearchFilter{
			MetadataTerms: map[string][]string{"lang": {"en"}},
		}, true},
		{"metadata membership", &SearchFilter{
			MetadataTerms: map[string][]string{"lang": {"de", "en"}},
		}, true},
		{"metadata mismatch", &SearchFilter{
			MetadataTerms: map[string][]string{"lang": {"de"}},
		}, false},
		{"metadata key missing", &SearchFilter{
			MetadataTerms: map[string][]string{"author": {"anyone"}},
		}, false},
		{"all conditions must hold", &SearchFilter{
			TagIDs:        []string{"tag-1"},
			MetadataTerms: map[string][]string{"lang": {"de"}},
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(chunk))
		})
	}
}

func TestSearchFilter_MatchesChunkWithoutAttributes(t *testing.T) {
	bare := &VectorChunk{ChunkUID: "c-2", DocumentUID: "doc-b"}

	assert.True(t, (*SearchFilter)(nil).Matches(bare))
	assert.False(t, (&SearchFilter{TagIDs: []string{"tag-1"}}).Matches(bare))
	assert.False(t, (&SearchFilter{
		MetadataTerms: map[string][]string{"lang": {"en"}},
	}).Matches(bare))
}
