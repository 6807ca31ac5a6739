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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// IngestCmd indexes the notes corpus and exits.
type IngestCmd struct {
	Corpus string `help:"Notes directory (overrides config)." type:"path"`
}

func (c *IngestCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Corpus != "" {
		cfg.RAG.CorpusPath = c.Corpus
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.ingestor.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Indexed %d documents (%d chunks) in %s\n",
		stats.DocumentsProcessed, stats.ChunksWritten, stats.Duration.Round(time.Millisecond))
	if stats.DocumentsSkipped > 0 {
		fmt.Printf("Skipped %d files (empty, oversized, or unreadable)\n", stats.DocumentsSkipped)
	}
	return nil
}
