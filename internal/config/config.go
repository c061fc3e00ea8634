// Package config loads the corpora configuration from a TOML file with
// sensible defaults for every setting.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Vector backend names accepted by [Config.Vector].
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config is the top-level configuration.
type Config struct {
	DataDir   string          `toml:"data_dir"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
}

// VectorConfig selects and parameterizes the vector store backend.
type VectorConfig struct {
	Backend    string `toml:"backend"`
	QdrantAddr string `toml:"qdrant_addr"`
	Collection string `toml:"collection"`
}

// EmbeddingConfig parameterizes the embedding service.
type EmbeddingConfig struct {
	Model             string  `toml:"model"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BurstSize         int     `toml:"burst_size"`
}

// SearchConfig holds the retrieval tunables.
type SearchConfig struct {
	RRFK                int     `toml:"rrf_k"`
	CandidateMultiplier int     `toml:"candidate_multiplier"`
	MMRThreshold        float64 `toml:"mmr_threshold"`
	StrictWidth         int     `toml:"strict_width"`
	StrictMinOverlap    int     `toml:"strict_min_overlap"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir: filepath.Join(home, ".corpora"),
		Vector: VectorConfig{
			Backend:    BackendSQLite,
			QdrantAddr: "localhost:6334",
			Collection: "corpora",
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			RequestsPerSecond: 5.0,
			BurstSize:         10,
		},
		Search: SearchConfig{
			RRFK:                60,
			CandidateMultiplier: 3,
			MMRThreshold:        0.95,
			StrictWidth:         20,
			StrictMinOverlap:    2,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing
// file yields the defaults; a missing path argument looks for
// config.toml in the default data directory.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Vector.Backend {
	case BackendMemory, BackendDisk, BackendSQLite, BackendQdrant:
	default:
		return fmt.Errorf("config: unknown vector backend %q", c.Vector.Backend)
	}
	if c.Search.RRFK <= 0 {
		return fmt.Errorf("config: rrf_k must be positive")
	}
	if c.Search.CandidateMultiplier < 1 {
		return fmt.Errorf("config: candidate_multiplier must be at least 1")
	}
	if c.Search.MMRThreshold <= 0 || c.Search.MMRThreshold > 1 {
		return fmt.Errorf("config: mmr_threshold must be in (0, 1]")
	}
	if c.Search.StrictMinOverlap < 1 {
		return fmt.Errorf("config: strict_min_overlap must be at least 1")
	}
	return nil
}

// VectorPath returns the on-disk location for the given backend's data
// under the data directory.
func (c Config) VectorPath() string {
	switch c.Vector.Backend {
	case BackendDisk:
		return filepath.Join(c.DataDir, "vectors.gob")
	case BackendSQLite:
		return filepath.Join(c.DataDir, "vectors.db")
	default:
		return ""
	}
}

// MetadataPath returns the metadata database location.
func (c Config) MetadataPath() string {
	return filepath.Join(c.DataDir, "metadata.db")
}

// ContentDir returns the content blob directory.
func (c Config) ContentDir() string {
	return filepath.Join(c.DataDir, "content")
}
