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

package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/mekanlabs/steward/pkg/embedder"
	"github.com/mekanlabs/steward/pkg/vector"
)

// Chunk is a retrieved piece of note context.
type Chunk struct {
	// Source is the relative path of the note file.
	Source string

	// Seq is the chunk's position within its source file.
	Seq int

	// Content is the chunk text.
	Content string

	// Score is the similarity to the query, higher is better.
	Score float32
}

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder embedder.Embedder
	index    vector.Index
	topK     int
}

// NewRetriever creates a retriever returning up to topK chunks per query.
func NewRetriever(emb embedder.Embedder, index vector.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{embedder: emb, index: index, topK: topK}
}

// TopK returns the configured result limit.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns up to topK chunks most similar to the query, ordered
// by descending score. Equal scores order by source path, then chunk
// position, so results are deterministic. An empty index yields an
// empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Chunk, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(ctx, queryVector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, Chunk{
			Source:  metaString(res.Metadata, vector.MetaSource),
			Seq:     metaInt(res.Metadata, vector.MetaSeq),
			Content: res.Content,
			Score:   res.Score,
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].Source != chunks[j].Source {
			return chunks[i].Source < chunks[j].Source
		}
		return chunks[i].Seq < chunks[j].Seq
	})

	return chunks, nil
}

func metaString(metadata map[string]any, key string) string {
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}

func metaInt(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
