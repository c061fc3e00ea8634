// Package openai provides the OpenAI-backed embedding service. Requests
// pass through a token-bucket limiter so bulk vectorization stays inside
// the API quota.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "text-embedding-3-small"

	// maxBatchSize caps how many inputs go into one API request.
	maxBatchSize = 256
)

// modelDimensions maps known embedding models to their vector width.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds the embedding service settings.
type Config struct {
	APIKey            string
	Model             string
	RequestsPerSecond float64
	BurstSize         int
}

// Service calls the OpenAI embeddings API.
type Service struct {
	client  *openai.Client
	limiter *rate.Limiter
	model   string
	dim     int
}

// New creates the embedding service. The API key falls back to the
// OPENAI_API_KEY environment variable.
func New(cfg Config) (*Service, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("embedding: OpenAI API key is not set")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dim, ok := modelDimensions[model]
	if !ok {
		return nil, fmt.Errorf("embedding: unknown model %q", model)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5.0
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 10
	}

	return &Service{
		client:  openai.NewClient(key),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		model:   model,
		dim:     dim,
	}, nil
}

// Embed implements driven.EmbeddingService.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements driven.EmbeddingService. Inputs beyond the API
// batch cap are split across requests; the result preserves input order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("embedding: empty input text: %w", domain.ErrInvalidInput)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding: rate limit wait: %w", err)
		}

		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(s.model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, &domain.BackendUnavailableError{Backend: "openai", Err: err}
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embedding: expected %d vectors, got %d", end-start, len(resp.Data))
		}
		for _, item := range resp.Data {
			out = append(out, item.Embedding)
		}
	}
	return out, nil
}

// Dimensions implements driven.EmbeddingService.
func (s *Service) Dimensions() int { return s.dim }

// ModelName implements driven.EmbeddingService.
func (s *Service) ModelName() string { return s.model }

// Close implements driven.EmbeddingService.
func (s *Service) Close() error { return nil }
