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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mekanlabs/steward/pkg/embedder"
	"github.com/mekanlabs/steward/pkg/vector"
)

// Stats summarizes one ingestion run.
type Stats struct {
	// DocumentsProcessed is the number of note files chunked and indexed.
	DocumentsProcessed int

	// DocumentsSkipped counts unreadable, oversized, and empty files.
	DocumentsSkipped int

	// ChunksWritten is the total number of chunks upserted.
	ChunksWritten int

	// Duration of the run.
	Duration time.Duration
}

// Ingestor chunks, embeds, and indexes the note corpus.
//
// Ingestion is idempotent: every run replaces all chunks previously
// stored for each source path, so repeated runs over an unchanged
// corpus converge to the same index state.
type Ingestor struct {
	source   *DirectorySource
	chunker  *Chunker
	embedder embedder.Embedder
	index    vector.Index

	// mu serializes ingestion runs.
	mu sync.Mutex
}

// NewIngestor creates an ingestor over the given pipeline stages.
func NewIngestor(source *DirectorySource, chunker *Chunker, emb embedder.Embedder, index vector.Index) *Ingestor {
	return &Ingestor{
		source:   source,
		chunker:  chunker,
		embedder: emb,
		index:    index,
	}
}

// Ingest walks the corpus and writes every file's chunks to the index.
// A failure on one file skips it (counted in stats) rather than
// aborting the run; only context cancellation stops early. Each file
// is replaced atomically per source, so a re-run repairs skips.
func (ing *Ingestor) Ingest(ctx context.Context) (Stats, error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	start := time.Now()

	files, skipped, err := ing.source.Files()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{DocumentsSkipped: skipped}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		chunks := ing.chunker.Chunk(file.Content)
		if len(chunks) == 0 {
			// Still drop stale chunks so deleted content disappears.
			if err := ing.index.DeleteBySource(ctx, file.Path); err != nil {
				slog.Warn("Failed to clear stale chunks, skipping file", "path", file.Path, "error", err)
			}
			stats.DocumentsSkipped++
			continue
		}

		vectors, err := ing.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			slog.Warn("Failed to embed file, skipping", "path", file.Path, "error", err)
			stats.DocumentsSkipped++
			continue
		}
		if len(vectors) != len(chunks) {
			slog.Warn("Embedder returned wrong vector count, skipping file",
				"path", file.Path, "vectors", len(vectors), "chunks", len(chunks))
			stats.DocumentsSkipped++
			continue
		}

		docs := make([]vector.Document, 0, len(chunks))
		for i, chunk := range chunks {
			docs = append(docs, vector.Document{
				ID:      chunkID(file.Path, i),
				Content: chunk,
				Vector:  vectors[i],
				Source:  file.Path,
				Seq:     i,
			})
		}

		if err := ing.index.DeleteBySource(ctx, file.Path); err != nil {
			slog.Warn("Failed to clear stale chunks, skipping file", "path", file.Path, "error", err)
			stats.DocumentsSkipped++
			continue
		}
		if err := ing.index.Upsert(ctx, docs); err != nil {
			slog.Warn("Failed to index file, skipping", "path", file.Path, "error", err)
			stats.DocumentsSkipped++
			continue
		}

		stats.DocumentsProcessed++
		stats.ChunksWritten += len(docs)

		slog.Debug("Indexed note file", "path", file.Path, "chunks", len(docs))
	}

	stats.Duration = time.Since(start)

	slog.Info("Ingestion complete",
		"documents", stats.DocumentsProcessed,
		"skipped", stats.DocumentsSkipped,
		"chunks", stats.ChunksWritten,
		"duration", stats.Duration)

	return stats, nil
}

// chunkID derives a stable UUID from the source path and chunk
// position. Deterministic IDs make re-ingestion overwrite in place,
// and UUIDs keep the Qdrant backend happy with point ID constraints.
func chunkID(source string, seq int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "steward:%s:%d", source, seq)).String()
}
