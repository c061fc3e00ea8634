package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsAndDimensions(t *testing.T) {
	svc, err := New(Config{APIKey: "test-key"})
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestNew_KnownModels(t *testing.T) {
	cases := map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
	for model, dim := range cases {
		svc, err := New(Config{APIKey: "test-key", Model: model})
		require.NoError(t, err)
		assert.Equal(t, dim, svc.Dimensions())
		assert.Equal(t, model, svc.ModelName())
	}
}

func TestNew_UnknownModel(t *testing.T) {
	_, err := New(Config{APIKey: "test-key", Model: "text-embedding-9-huge"})
	assert.Error(t, err)
}

func TestNew_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := New(Config{})
	assert.Error(t, err)
}

func TestEmbedBatch_EmptyAndInvalidInput(t *testing.T) {
	svc, err := New(Config{APIKey: "test-key"})
	require.NoError(t, err)

	// No inputs, no API call.
	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)

	// Empty strings are rejected before any request is made.
	_, err = svc.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.Error(t, err)
}
