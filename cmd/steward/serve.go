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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mekanlabs/steward/pkg/rag"
	"github.com/mekanlabs/steward/pkg/server"
)

// ServeCmd starts the assistant HTTP server.
type ServeCmd struct {
	Port    int  `help:"Port to listen on (overrides config)." default:"0"`
	Ingest  bool `help:"Index the notes corpus before serving." default:"true" negatable:""`
	Watch   bool `help:"Watch the notes corpus and re-index on changes." default:"true" negatable:""`
	Timeout int  `name:"shutdown-timeout" help:"Graceful shutdown timeout in seconds." default:"10"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Ingest {
		// Index asynchronously so startup is not blocked on embedding
		// the whole corpus. Retrieval degrades gracefully meanwhile.
		go func() {
			stats, err := a.ingestor.Ingest(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("Corpus indexing failed", "error", err)
				}
				return
			}
			slog.Info("Corpus indexed",
				"documents", stats.DocumentsProcessed,
				"skipped", stats.DocumentsSkipped,
				"chunks", stats.ChunksWritten,
				"duration", stats.Duration)
		}()
	}

	if c.Watch {
		watcher := rag.NewWatcher(cfg.RAG.CorpusPath, a.ingestor, 0)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Corpus watching stopped", "error", err)
			}
		}()
	}

	srv := server.New(&cfg.Server, a.orchestrator, a.store)

	fmt.Printf("Steward ready on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Chat:    POST /chat\n")
	fmt.Printf("  Todos:   GET  /todos\n")
	fmt.Printf("  Health:  GET  /healthz\n")
	fmt.Printf("  Metrics: GET  /metrics\n")
	if cfg.Server.APIToken != "" {
		fmt.Printf("  Auth:    bearer token required\n")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(c.Timeout)*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
