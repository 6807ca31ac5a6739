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
	"testing"
)

func newTestIndex(t *testing.T) *ChromemIndex {
	t.Helper()
	idx, err := NewChromemIndex(ChromemConfig{Collection: "test"})
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestChromemUpsertAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "notes.md:0", Content: "ship the beta", Vector: []float32{1, 0, 0}, Source: "notes.md", Seq: 0},
		{ID: "notes.md:1", Content: "call the dentist", Vector: []float32{0, 1, 0}, Source: "notes.md", Seq: 1},
		{ID: "goals.md:0", Content: "launch in autumn", Vector: []float32{0.9, 0.1, 0}, Source: "goals.md", Seq: 0},
	}
	if err := idx.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "notes.md:0" {
		t.Errorf("expected best match notes.md:0, got %s", results[0].ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by descending score: %f < %f", results[0].Score, results[1].Score)
	}
	if results[0].Metadata[MetaSource] != "notes.md" {
		t.Errorf("unexpected source metadata: %v", results[0].Metadata[MetaSource])
	}
}

func TestChromemSearchCapsTopK(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, []Document{
		{ID: "a:0", Content: "one", Vector: []float32{1, 0}, Source: "a", Seq: 0},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestChromemSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty index, got %d", len(results))
	}
}

func TestChromemDeleteBySource(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, []Document{
		{ID: "a.md:0", Content: "alpha", Vector: []float32{1, 0}, Source: "a.md", Seq: 0},
		{ID: "a.md:1", Content: "beta", Vector: []float32{0.9, 0.1}, Source: "a.md", Seq: 1},
		{ID: "b.md:0", Content: "gamma", Vector: []float32{0, 1}, Source: "b.md", Seq: 0},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := idx.DeleteBySource(ctx, "a.md"); err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining chunk, got %d", count)
	}

	results, err := idx.Search(ctx, []float32{0, 1}, 4)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "b.md:0" {
		t.Errorf("unexpected survivors: %v", results)
	}
}

func TestChromemPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewChromemIndex(ChromemConfig{Collection: "test", PersistPath: dir})
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if err := idx.Upsert(ctx, []Document{
		{ID: "a:0", Content: "persisted", Vector: []float32{1, 0}, Source: "a", Seq: 0},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reloaded, err := NewChromemIndex(ChromemConfig{Collection: "test", PersistPath: dir})
	if err != nil {
		t.Fatalf("failed to reload index: %v", err)
	}
	defer reloaded.Close()

	count, err := reloaded.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 chunk after reload, got %d", count)
	}
}
