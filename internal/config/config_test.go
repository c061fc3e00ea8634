package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Vector.Backend)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, 3, cfg.Search.CandidateMultiplier)
	assert.Equal(t, 0.95, cfg.Search.MMRThreshold)
	assert.Equal(t, 20, cfg.Search.StrictWidth)
	assert.Equal(t, 2, cfg.Search.StrictMinOverlap)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/corpora"

[vector]
backend = "qdrant"
qdrant_addr = "qdrant.internal:6334"
collection = "docs"

[search]
rrf_k = 30
strict_min_overlap = 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/corpora", cfg.DataDir)
	assert.Equal(t, BackendQdrant, cfg.Vector.Backend)
	assert.Equal(t, "qdrant.internal:6334", cfg.Vector.QdrantAddr)
	assert.Equal(t, "docs", cfg.Vector.Collection)
	assert.Equal(t, 30, cfg.Search.RRFK)
	assert.Equal(t, 3, cfg.Search.StrictMinOverlap)

	// Untouched sections keep their defaults.
	assert.Equal(t, 0.95, cfg.Search.MMRThreshold)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown backend":  "[vector]\nbackend = \"etcd\"\n",
		"zero rrf_k":       "[search]\nrrf_k = 0\n",
		"bad multiplier":   "[search]\ncandidate_multiplier = 0\n",
		"bad threshold":    "[search]\nmmr_threshold = 1.5\n",
		"zero min overlap": "[search]\nstrict_min_overlap = 0\n",
		"malformed toml":   "vector = [unclosed\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"

	cfg.Vector.Backend = BackendDisk
	assert.Equal(t, filepath.Join("/data", "vectors.gob"), cfg.VectorPath())

	cfg.Vector.Backend = BackendSQLite
	assert.Equal(t, filepath.Join("/data", "vectors.db"), cfg.VectorPath())

	cfg.Vector.Backend = BackendMemory
	assert.Empty(t, cfg.VectorPath())

	assert.Equal(t, filepath.Join("/data", "metadata.db"), cfg.MetadataPath())
	assert.Equal(t, filepath.Join("/data", "content"), cfg.ContentDir())
}
