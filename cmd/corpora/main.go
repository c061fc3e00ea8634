// Command corpora is the knowledge retrieval CLI. It wires the configured
// vector backend, the metadata catalog, and the content blob store into
// the retrieval and audit services and hands them to the command adapter.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	contentfs "github.com/corpora-io/corpora/internal/adapters/driven/content/fs"
	openaiembed "github.com/corpora-io/corpora/internal/adapters/driven/embedding/openai"
	metasqlite "github.com/corpora-io/corpora/internal/adapters/driven/metadata/sqlite"
	"github.com/corpora-io/corpora/internal/adapters/driven/scope"
	vecdisk "github.com/corpora-io/corpora/internal/adapters/driven/vector/disk"
	vecmemory "github.com/corpora-io/corpora/internal/adapters/driven/vector/memory"
	vecqdrant "github.com/corpora-io/corpora/internal/adapters/driven/vector/qdrant"
	vecsqlite "github.com/corpora-io/corpora/internal/adapters/driven/vector/sqlite"
	"github.com/corpora-io/corpora/internal/adapters/driving/cli"
	"github.com/corpora-io/corpora/internal/config"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
	"github.com/corpora-io/corpora/internal/core/services"
	"github.com/corpora-io/corpora/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Optional .env for API keys during development.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetBootstrap(buildServices)
	cli.Execute()
}

func buildServices(configPath string) (cli.Services, func(), error) {
	var none cli.Services

	cfg, err := config.Load(configPath)
	if err != nil {
		return none, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return none, nil, fmt.Errorf("create data directory: %w", err)
	}

	embedder, err := openaiembed.New(openaiembed.Config{
		Model:             cfg.Embedding.Model,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		BurstSize:         cfg.Embedding.BurstSize,
	})
	if err != nil {
		return none, nil, err
	}

	vectors, err := openVectorStore(cfg, embedder)
	if err != nil {
		embedder.Close()
		return none, nil, err
	}

	metadata, err := metasqlite.Open(cfg.MetadataPath())
	if err != nil {
		vectors.Close()
		embedder.Close()
		return none, nil, err
	}

	content, err := contentfs.New(cfg.ContentDir())
	if err != nil {
		metadata.Close()
		vectors.Close()
		embedder.Close()
		return none, nil, err
	}

	tunables := services.Tunables{
		RRFK:                cfg.Search.RRFK,
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
		MMRThreshold:        cfg.Search.MMRThreshold,
		StrictWidth:         cfg.Search.StrictWidth,
		StrictMinOverlap:    cfg.Search.StrictMinOverlap,
	}

	closer := func() {
		if err := metadata.Close(); err != nil {
			logger.Warn("Closing metadata store: %v", err)
		}
		if err := vectors.Close(); err != nil {
			logger.Warn("Closing vector store: %v", err)
		}
		if err := embedder.Close(); err != nil {
			logger.Warn("Closing embedding service: %v", err)
		}
	}

	return cli.Services{
		Retrieval: services.NewRetrieval(vectors, metadata, embedder, scope.NewPassthrough(), tunables),
		Audit:     services.NewAudit(metadata, vectors, content),
	}, closer, nil
}

func openVectorStore(cfg config.Config, embedder driven.EmbeddingService) (driven.VectorStore, error) {
	switch cfg.Vector.Backend {
	case config.BackendMemory:
		return vecmemory.New(embedder), nil
	case config.BackendDisk:
		return vecdisk.Open(cfg.VectorPath(), embedder)
	case config.BackendSQLite:
		return vecsqlite.Open(cfg.VectorPath(), embedder)
	case config.BackendQdrant:
		return vecqdrant.New(cfg.Vector.QdrantAddr, cfg.Vector.Collection, embedder)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}
