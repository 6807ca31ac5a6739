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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Note file extensions picked up by corpus walks.
var noteExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// SourceFile is a note file discovered in the corpus directory.
type SourceFile struct {
	// Path is the file path relative to the corpus root, using forward
	// slashes. It identifies the file across re-ingestions.
	Path string

	// Content is the full file text.
	Content string
}

// DirectorySource discovers note files under a corpus directory.
type DirectorySource struct {
	root        string
	maxFileSize int64
}

// NewDirectorySource creates a source over the given directory.
// Files larger than maxFileSize bytes are skipped.
func NewDirectorySource(root string, maxFileSize int64) (*DirectorySource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", root)
	}
	return &DirectorySource{root: root, maxFileSize: maxFileSize}, nil
}

// Files walks the corpus and returns readable note files in stable
// path order. Unreadable and oversized files are skipped with a
// warning; skipped reports how many.
func (s *DirectorySource) Files() (files []SourceFile, skipped int, err error) {
	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				slog.Warn("Skipping unreadable directory", "path", path, "error", err)
				return fs.SkipDir
			}
			slog.Warn("Skipping unreadable file", "path", path, "error", err)
			skipped++
			return nil
		}
		if d.IsDir() {
			// Hidden directories hold editor state, not notes.
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") && path != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if !noteExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		if s.maxFileSize > 0 {
			info, err := d.Info()
			if err != nil {
				slog.Warn("Skipping unreadable file", "path", path, "error", err)
				skipped++
				return nil
			}
			if info.Size() > s.maxFileSize {
				slog.Warn("Skipping oversized file", "path", path, "size", info.Size())
				skipped++
				return nil
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", path, "error", err)
			skipped++
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}

		files = append(files, SourceFile{
			Path:    filepath.ToSlash(rel),
			Content: string(data),
		})
		return nil
	})
	if walkErr != nil {
		return nil, skipped, fmt.Errorf("failed to walk corpus: %w", walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, skipped, nil
}
