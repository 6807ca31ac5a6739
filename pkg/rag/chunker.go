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

// Package rag implements the retrieval pipeline: chunking note files,
// embedding chunks into a vector index, and serving similarity queries.
package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Chunk units.
const (
	UnitChars  = "chars"
	UnitTokens = "tokens"
)

// Chunker splits text into overlapping windows.
//
// Adjacent chunks share an overlap so that statements near a boundary
// stay retrievable from at least one chunk.
type Chunker struct {
	size    int
	overlap int
	unit    string

	encoding *tiktoken.Tiktoken
}

// NewChunker creates a chunker. Size and overlap are measured in the
// given unit; overlap must be smaller than size.
func NewChunker(size, overlap int, unit string) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}

	c := &Chunker{size: size, overlap: overlap, unit: unit}

	switch unit {
	case UnitChars, "":
		c.unit = UnitChars
	case UnitTokens:
		encoding, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding: %w", err)
		}
		c.encoding = encoding
	default:
		return nil, fmt.Errorf("unsupported chunk unit: %s", unit)
	}

	return c, nil
}

// Chunk splits text into overlapping windows. Whitespace-only input
// yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if c.unit == UnitTokens {
		return c.chunkTokens(text)
	}
	return c.chunkChars(text)
}

func (c *Chunker) chunkChars(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func (c *Chunker) chunkTokens(text string) []string {
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.encoding.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
