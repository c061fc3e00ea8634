// Package qdrant provides a remote vector engine backed by a Qdrant
// server over gRPC. Network failures surface as
// *domain.BackendUnavailableError so callers can distinguish an outage
// from an empty result; the store never retries internally.
package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/corpora-io/corpora/internal/adapters/driven/vector"
	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interface. No LexicalSearcher assertion:
// the collection carries no keyword index.
var _ driven.VectorStore = (*Store)(nil)

// scrollPageSize bounds one Scroll request during audit counting.
const scrollPageSize = 512

// Store is a Qdrant-backed implementation of driven.VectorStore.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	embedder    driven.EmbeddingService
}

// New connects to Qdrant at the given gRPC address. The caller-supplied
// context bounds every subsequent RPC: timeouts are honored, never hung.
func New(addr, collection string, embedder driven.EmbeddingService) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &domain.BackendUnavailableError{Backend: "qdrant", Err: err}
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embedder:    embedder,
	}, nil
}

// Name implements driven.VectorStore.
func (s *Store) Name() string { return "qdrant" }

// Close implements driven.VectorStore.
func (s *Store) Close() error { return s.conn.Close() }

// EnsureCollection creates the collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return s.unavailable(err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.embedder.Dimensions()),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return s.unavailable(err)
	}
	return nil
}

// Upsert implements driven.VectorStore. Qdrant point ids must be UUIDs,
// so each ChunkUID maps to a deterministic UUIDv5 and the original UID
// travels in the payload.
func (s *Store) Upsert(ctx context.Context, chunks []domain.VectorChunk) ([]string, error) {
	prepared, err := vector.PrepareChunks(ctx, s.embedder, s.Name(), chunks)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return nil, nil
	}

	points := make([]*pb.PointStruct, len(prepared))
	uids := make([]string, len(prepared))
	for i, c := range prepared {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(c.ChunkUID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: c.Embedding},
				},
			},
			Payload: chunkPayload(&c),
		}
		uids[i] = c.ChunkUID
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		// A failed RPC is an outage, not a per-chunk rejection: chunk
		// validation already happened in PrepareChunks.
		return nil, s.unavailable(err)
	}
	return uids, nil
}

// DeleteForDocument implements driven.VectorStore via delete-by-filter.
func (s *Store) DeleteForDocument(ctx context.Context, documentUID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch("document_uid", documentUID)},
				},
			},
		},
	})
	if err != nil {
		return s.unavailable(err)
	}
	return nil
}

// SetRetrievable implements driven.VectorStore by rewriting the
// retrievable payload flag on every point of the document.
func (s *Store) SetRetrievable(ctx context.Context, documentUID string, retrievable bool) error {
	wait := true
	_, err := s.points.SetPayload(ctx, &pb.SetPayloadPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Payload: map[string]*pb.Value{
			"retrievable": {Kind: &pb.Value_BoolValue{BoolValue: retrievable}},
		},
		PointsSelector: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch("document_uid", documentUID)},
				},
			},
		},
	})
	if err != nil {
		return s.unavailable(err)
	}
	return nil
}

// DocumentChunkCounts implements driven.VectorStore by scrolling the
// collection with a payload projection.
func (s *Store) DocumentChunkCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	limit := uint32(scrollPageSize)
	var offset *pb.PointId

	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Include{
					Include: &pb.PayloadIncludeSelector{Fields: []string{"document_uid"}},
				},
			},
		})
		if err != nil {
			return nil, s.unavailable(err)
		}

		for _, p := range resp.GetResult() {
			if uid := p.GetPayload()["document_uid"].GetStringValue(); uid != "" {
				counts[uid]++
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return counts, nil
		}
	}
}

// AnnSearch implements driven.VectorStore. The filter compiles into
// Qdrant payload conditions so candidate restriction happens server-side.
func (s *Store) AnnSearch(
	ctx context.Context, query string, k int, f *domain.SearchFilter,
) ([]domain.AnnHit, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant: embed query: %w", err)
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         queryVec,
		Limit:          uint64(k),
		Filter:         searchFilter(f),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, s.unavailable(err)
	}

	hits := make([]domain.AnnHit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		c := chunkFromPayload(p.GetPayload())
		c.Embedding = p.GetVectors().GetVector().GetData()
		hits = append(hits, domain.AnnHit{Chunk: c, Score: float64(p.GetScore())})
	}

	// Qdrant orders by score; re-sort only to pin the UID tie-break.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkUID < hits[j].Chunk.ChunkUID
	})
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

func (s *Store) unavailable(err error) error {
	return &domain.BackendUnavailableError{Backend: s.Name(), Err: err}
}

func pointID(chunkUID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("corpora:chunk:"+chunkUID)).String()
}
