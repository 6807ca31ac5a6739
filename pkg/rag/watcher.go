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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-ingests the corpus when note files change. Ingestion is
// idempotent per source file, so a full re-run after each burst of
// changes keeps the index consistent without tracking individual
// events.
type Watcher struct {
	root     string
	ingestor *Ingestor
	debounce time.Duration
}

// NewWatcher creates a watcher over the corpus root. debounce bounds
// how long a burst of file events coalesces before re-ingesting;
// zero means 500ms.
func NewWatcher(root string, ingestor *Ingestor, debounce time.Duration) *Watcher {
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{root: root, ingestor: ingestor, debounce: debounce}
}

// Run watches until ctx is cancelled. Changes to non-note files are
// ignored; new subdirectories are picked up as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Warn("Failed to close corpus watcher", "error", err)
		}
	}()

	if err := addRecursive(watcher, w.root); err != nil {
		return err
	}
	slog.Info("Watching corpus for changes", "path", w.root)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod != 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !noteExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				// Removed directories also land here; a re-ingest
				// clears their chunks, so treat them like notes.
				if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			stats, err := w.ingestor.Ingest(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("Corpus re-indexing failed", "error", err)
				continue
			}
			slog.Info("Corpus re-indexed",
				"documents", stats.DocumentsProcessed,
				"chunks", stats.ChunksWritten,
				"duration", stats.Duration)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Corpus watcher error", "error", err)
		}
	}
}

// addRecursive watches root and every non-hidden subdirectory.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}
