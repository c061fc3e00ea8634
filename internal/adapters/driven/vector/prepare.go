// Package vector holds helpers shared by the vector engine adapters.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// PrepareChunks validates a batch and embeds every chunk that arrived
// without an embedding, before anything is written. A single bad chunk
// fails the whole batch with a *domain.PartialWriteError naming the
// rejected UIDs and causes; valid chunks are never silently dropped.
// Prepared chunks are marked retrievable: visibility is toggled only
// through SetRetrievable.
func PrepareChunks(
	ctx context.Context,
	embedder driven.EmbeddingService,
	backend string,
	chunks []domain.VectorChunk,
) ([]domain.VectorChunk, error) {
	failed := make(map[string]string)
	prepared := make([]domain.VectorChunk, 0, len(chunks))

	var toEmbed []int
	dims := embedder.Dimensions()

	for _, c := range chunks {
		switch {
		case c.ChunkUID == "":
			failed["(empty)"] = "chunk_uid is required"
			continue
		case c.DocumentUID == "":
			failed[c.ChunkUID] = "document_uid is required"
			continue
		case c.Text == "":
			failed[c.ChunkUID] = "text is required"
			continue
		case len(c.Embedding) > 0 && dims > 0 && len(c.Embedding) != dims:
			failed[c.ChunkUID] = fmt.Sprintf("embedding has %d dimensions, backend expects %d",
				len(c.Embedding), dims)
			continue
		}
		c.Retrievable = true
		if len(c.Embedding) == 0 {
			toEmbed = append(toEmbed, len(prepared))
		}
		prepared = append(prepared, c)
	}

	if len(failed) > 0 {
		return nil, &domain.PartialWriteError{Backend: backend, Failed: failed}
	}

	if len(toEmbed) > 0 {
		texts := make([]string, len(toEmbed))
		for i, idx := range toEmbed {
			texts[i] = prepared[idx].Text
		}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			for _, idx := range toEmbed {
				failed[prepared[idx].ChunkUID] = fmt.Sprintf("embed: %v", err)
			}
			return nil, &domain.PartialWriteError{Backend: backend, Failed: failed}
		}
		if len(vectors) != len(toEmbed) {
			return nil, fmt.Errorf("%s: embedder returned %d vectors for %d texts",
				backend, len(vectors), len(toEmbed))
		}
		for i, idx := range toEmbed {
			prepared[idx].Embedding = vectors[i]
		}
	}

	return prepared, nil
}

// Cosine returns the cosine similarity of two vectors, 0 for mismatched
// or empty inputs.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeVector serializes a vector as little-endian float32 bytes for
// BLOB storage.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector reads a vector from little-endian float32 bytes.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
