package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthrough_Resolve(t *testing.T) {
	resolver := NewPassthrough()

	filter, err := resolver.Resolve(context.Background(), []string{"tag-1", "tag-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tag-1", "tag-2"}, filter.TagIDs)
	assert.Empty(t, filter.MetadataTerms)

	filter, err = resolver.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, filter.TagIDs)
}
