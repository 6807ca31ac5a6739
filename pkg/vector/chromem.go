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
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex implements Index using chromem-go for embedded storage.
//
// Vectors live in memory with optional gob file persistence, which makes
// this the default backend: no external services to run. Single-process
// only and memory-bound, so switch to qdrant for large corpora.
type ChromemIndex struct {
	db  *chromem.DB
	col *chromem.Collection
}

// ChromemConfig configures the embedded chromem backend.
type ChromemConfig struct {
	// Collection name for note chunks.
	Collection string

	// PersistPath is a directory for file persistence. Empty means
	// memory only.
	PersistPath string

	// Compress enables gzip compression of the persisted file.
	Compress bool
}

// NewChromemIndex creates an embedded vector index.
func NewChromemIndex(cfg ChromemConfig) (*ChromemIndex, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}

		// NewPersistentDB loads any existing collections from the
		// directory and persists every write as it happens.
		loaded, err := chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database at %s: %w", cfg.PersistPath, err)
		}
		db = loaded
		slog.Info("Opened persistent vector database", "path", cfg.PersistPath)
	} else {
		db = chromem.NewDB()
		slog.Info("Created in-memory vector database (no persistence)")
	}

	// Embeddings are always pre-computed, so the collection's embedding
	// function must never run.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors should be pre-computed")
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", cfg.Collection, err)
	}

	return &ChromemIndex{
		db:  db,
		col: col,
	}, nil
}

// Upsert adds or replaces documents with their pre-computed vectors.
func (idx *ChromemIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:      d.ID,
			Content: d.Content,
			Metadata: map[string]string{
				MetaSource: d.Source,
				MetaSeq:    strconv.Itoa(d.Seq),
			},
			Embedding: d.Vector,
		})
	}

	if err := idx.col.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert documents: %w", err)
	}

	return nil
}

// Search returns up to topK hits ordered by descending cosine similarity.
func (idx *ChromemIndex) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	// chromem rejects queries asking for more results than stored.
	if count := idx.col.Count(); count < topK {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := idx.col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		out = append(out, Result{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: metadata,
		})
	}

	return out, nil
}

// DeleteBySource removes every chunk ingested from the given source path.
func (idx *ChromemIndex) DeleteBySource(ctx context.Context, source string) error {
	if err := idx.col.Delete(ctx, map[string]string{MetaSource: source}, nil); err != nil {
		return fmt.Errorf("failed to delete by source: %w", err)
	}

	return nil
}

// Count reports the number of stored chunks.
func (idx *ChromemIndex) Count(ctx context.Context) (int, error) {
	return idx.col.Count(), nil
}

// Name returns the backend name.
func (idx *ChromemIndex) Name() string {
	return "chromem"
}

// Close releases resources. Persistence happens on every write, so
// there is nothing to flush.
func (idx *ChromemIndex) Close() error {
	return nil
}

// Ensure ChromemIndex implements Index.
var _ Index = (*ChromemIndex)(nil)
