package qdrant

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// metaPrefix namespaces flat chunk metadata keys in the point payload so
// they cannot collide with the structural keys.
const metaPrefix = "meta_"

// chunkPayload converts a chunk to its Qdrant point payload.
func chunkPayload(c *domain.VectorChunk) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"chunk_uid":    {Kind: &pb.Value_StringValue{StringValue: c.ChunkUID}},
		"document_uid": {Kind: &pb.Value_StringValue{StringValue: c.DocumentUID}},
		"text":         {Kind: &pb.Value_StringValue{StringValue: c.Text}},
		"retrievable":  {Kind: &pb.Value_BoolValue{BoolValue: c.Retrievable}},
		"tag_ids":      {Kind: &pb.Value_ListValue{ListValue: stringList(c.TagIDs)}},
	}
	for k, v := range c.Metadata {
		payload[metaPrefix+k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return payload
}

// chunkFromPayload reverses chunkPayload. The embedding is attached
// separately from the point vectors.
func chunkFromPayload(payload map[string]*pb.Value) domain.VectorChunk {
	c := domain.VectorChunk{
		ChunkUID:    payload["chunk_uid"].GetStringValue(),
		DocumentUID: payload["document_uid"].GetStringValue(),
		Text:        payload["text"].GetStringValue(),
		Retrievable: payload["retrievable"].GetBoolValue(),
	}
	for _, v := range payload["tag_ids"].GetListValue().GetValues() {
		c.TagIDs = append(c.TagIDs, v.GetStringValue())
	}
	for k, v := range payload {
		if len(k) > len(metaPrefix) && k[:len(metaPrefix)] == metaPrefix {
			if c.Metadata == nil {
				c.Metadata = make(map[string]string)
			}
			c.Metadata[k[len(metaPrefix):]] = v.GetStringValue()
		}
	}
	return c
}

// searchFilter compiles a SearchFilter into Qdrant payload conditions:
// retrievability always, tag intersection and metadata membership when
// present.
func searchFilter(f *domain.SearchFilter) *pb.Filter {
	must := []*pb.Condition{boolMatch("retrievable", true)}

	if f != nil {
		if len(f.TagIDs) > 0 {
			must = append(must, anyMatch("tag_ids", f.TagIDs))
		}
		for key, accepted := range f.MetadataTerms {
			must = append(must, anyMatch(metaPrefix+key, accepted))
		}
	}
	return &pb.Filter{Must: must}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func anyMatch(key string, values []string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keywords{
						Keywords: &pb.RepeatedStrings{Strings: values},
					},
				},
			},
		},
	}
}

func boolMatch(key string, value bool) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Boolean{Boolean: value},
				},
			},
		},
	}
}

func stringList(values []string) *pb.ListValue {
	out := make([]*pb.Value, len(values))
	for i, v := range values {
		out[i] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return &pb.ListValue{Values: out}
}
