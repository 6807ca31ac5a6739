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
	"strings"
	"testing"
)

func TestChunkerValidation(t *testing.T) {
	if _, err := NewChunker(0, 0, UnitChars); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := NewChunker(10, 10, UnitChars); err == nil {
		t.Error("expected error for overlap >= size")
	}
	if _, err := NewChunker(10, 2, "words"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestChunkCharsOverlap(t *testing.T) {
	c, err := NewChunker(10, 4, UnitChars)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := c.Chunk(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0] != "abcdefghij" {
		t.Errorf("unexpected first chunk: %q", chunks[0])
	}
	// Each chunk after the first starts with the previous chunk's tail.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-4:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not overlap previous: %q vs tail %q", i, chunks[i], tail)
		}
	}
	// Concatenating chunks minus overlaps reconstructs the input.
	rebuilt := chunks[0]
	for i := 1; i < len(chunks); i++ {
		rebuilt += chunks[i][4:]
	}
	if rebuilt != text {
		t.Errorf("chunks do not cover input: %q", rebuilt)
	}
}

func TestChunkSmallInput(t *testing.T) {
	c, err := NewChunker(100, 20, UnitChars)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	chunks := c.Chunk("short note")
	if len(chunks) != 1 || chunks[0] != "short note" {
		t.Errorf("expected single chunk, got %v", chunks)
	}
}

func TestChunkEmptyInput(t *testing.T) {
	c, err := NewChunker(100, 20, UnitChars)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	if chunks := c.Chunk("   \n\t  "); chunks != nil {
		t.Errorf("expected no chunks for whitespace input, got %v", chunks)
	}
}

func TestChunkTokens(t *testing.T) {
	c, err := NewChunker(8, 2, UnitTokens)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 5)
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}
