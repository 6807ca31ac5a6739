// Copyright 2025 Mekan Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the Qdrant backend.
type QdrantConfig struct {
	// Collection name for note chunks.
	Collection string

	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// APIKey for authenticated access (optional).
	APIKey string

	// UseTLS enables TLS connections.
	UseTLS bool
}

// QdrantIndex implements Index using a Qdrant server over gRPC.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string

	ensureOnce sync.Once
	ensureErr  error
}

// NewQdrantIndex creates a Qdrant-backed vector index.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334 // Qdrant gRPC port
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
	}, nil
}

// ensureCollection creates the collection on first use, sized from the
// first vector seen.
func (idx *QdrantIndex) ensureCollection(ctx context.Context, dimension int) error {
	idx.ensureOnce.Do(func() {
		exists, err := idx.client.CollectionExists(ctx, idx.collection)
		if err != nil {
			idx.ensureErr = fmt.Errorf("failed to check collection existence: %w", err)
			return
		}
		if exists {
			return
		}

		err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: idx.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			idx.ensureErr = fmt.Errorf("failed to create collection: %w", err)
		}
	})
	return idx.ensureErr
}

// Upsert adds or replaces documents with their pre-computed vectors.
func (idx *QdrantIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	if err := idx.ensureCollection(ctx, len(docs[0].Vector)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		payload := make(map[string]*qdrant.Value, 3)
		for key, value := range map[string]any{
			"content":  d.Content,
			MetaSource: d.Source,
			MetaSeq:    int64(d.Seq),
		} {
			val, err := qdrant.NewValue(value)
			if err != nil {
				return fmt.Errorf("failed to convert payload value for key %s: %w", key, err)
			}
			payload[key] = val
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(d.ID),
			Vectors: qdrant.NewVectors(d.Vector...),
			Payload: payload,
		})
	}

	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search returns up to topK hits ordered by descending similarity.
func (idx *QdrantIndex) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	searchRequest := &qdrant.SearchPoints{
		CollectionName: idx.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	pointsClient := idx.client.GetPointsClient()
	searchResult, err := pointsClient.Search(ctx, searchRequest)
	if err != nil {
		// A missing collection just means nothing has been ingested yet.
		if strings.Contains(err.Error(), "doesn't exist") || strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	return convertQdrantResults(searchResult.Result), nil
}

// DeleteBySource removes every chunk ingested from the given source path.
func (idx *QdrantIndex) DeleteBySource(ctx context.Context, source string) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: MetaSource,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: source},
						},
					},
				},
			},
		},
	}

	_, err = idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: idx.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete by source: %w", err)
	}
	return nil
}

// Count reports the number of stored chunks.
func (idx *QdrantIndex) Count(ctx context.Context) (int, error) {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return 0, nil
	}

	count, err := idx.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: idx.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// Name returns the backend name.
func (idx *QdrantIndex) Name() string {
	return "qdrant"
}

// Close closes the gRPC connection.
func (idx *QdrantIndex) Close() error {
	return idx.client.Close()
}

// convertQdrantResults converts Qdrant scored points to Result values.
func convertQdrantResults(points []*qdrant.ScoredPoint) []Result {
	results := make([]Result, 0, len(points))

	for _, point := range points {
		var id string
		if point.Id != nil && point.Id.PointIdOptions != nil {
			switch idType := point.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				id = idType.Uuid
			case *qdrant.PointId_Num:
				id = strconv.FormatUint(idType.Num, 10)
			}
		}

		metadata := make(map[string]any)
		for key, value := range point.Payload {
			switch v := value.Kind.(type) {
			case *qdrant.Value_StringValue:
				metadata[key] = v.StringValue
			case *qdrant.Value_IntegerValue:
				metadata[key] = v.IntegerValue
			case *qdrant.Value_DoubleValue:
				metadata[key] = v.DoubleValue
			case *qdrant.Value_BoolValue:
				metadata[key] = v.BoolValue
			default:
				metadata[key] = value
			}
		}

		content := ""
		if contentStr, ok := metadata["content"].(string); ok {
			content = contentStr
			delete(metadata, "content")
		}

		results = append(results, Result{
			ID:       id,
			Score:    point.Score,
			Content:  content,
			Metadata: metadata,
		})
	}

	return results
}

// Ensure QdrantIndex implements Index.
var _ Index = (*QdrantIndex)(nil)
