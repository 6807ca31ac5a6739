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

// Package vector provides pluggable vector index backends for note retrieval.
//
// Two backends are supported:
//   - chromem: embedded pure-Go storage, zero external services
//   - qdrant: external Qdrant server over gRPC, for larger corpora
package vector

import "context"

// Metadata keys attached to every stored chunk.
const (
	MetaSource = "source"
	MetaSeq    = "seq"
)

// Document is a single chunk with its pre-computed embedding.
// Vectors are always computed externally by the embedder package.
type Document struct {
	// ID uniquely identifies the chunk within the index.
	ID string

	// Content is the chunk text.
	Content string

	// Vector is the pre-computed embedding.
	Vector []float32

	// Source is the relative path of the file the chunk came from.
	Source string

	// Seq is the zero-based position of the chunk within its source file.
	Seq int
}

// Result is a single search hit.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Index stores chunk embeddings and serves similarity search.
type Index interface {
	// Upsert adds or replaces the given documents.
	Upsert(ctx context.Context, docs []Document) error

	// Search returns up to topK results ordered by descending similarity.
	Search(ctx context.Context, vector []float32, topK int) ([]Result, error)

	// DeleteBySource removes every chunk ingested from the given source path.
	DeleteBySource(ctx context.Context, source string) error

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Name identifies the backend.
	Name() string

	// Close flushes and releases resources.
	Close() error
}
