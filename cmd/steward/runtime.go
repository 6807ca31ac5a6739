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

	"github.com/mekanlabs/steward/pkg/agent"
	"github.com/mekanlabs/steward/pkg/capability"
	"github.com/mekanlabs/steward/pkg/config"
	"github.com/mekanlabs/steward/pkg/embedder"
	"github.com/mekanlabs/steward/pkg/llm"
	"github.com/mekanlabs/steward/pkg/rag"
	"github.com/mekanlabs/steward/pkg/session"
	"github.com/mekanlabs/steward/pkg/store"
	"github.com/mekanlabs/steward/pkg/tool"
	"github.com/mekanlabs/steward/pkg/tool/calendartool"
	"github.com/mekanlabs/steward/pkg/tool/todotool"
	"github.com/mekanlabs/steward/pkg/vector"
)

// app holds every wired component of a running Steward instance.
type app struct {
	cfg          *config.Config
	embedder     embedder.Embedder
	provider     llm.Provider
	index        vector.Index
	ingestor     *rag.Ingestor
	retriever    *rag.Retriever
	store        *store.Store
	sessions     *session.Service
	capabilities *capability.Registry
	tools        *tool.Registry
	orchestrator *agent.Orchestrator
}

// newApp wires the full assistant from configuration. Capability probes
// run against ctx; everything else is local construction.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	emb, err := embedder.NewFromConfig(&cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	provider, err := llm.NewFromConfig(&cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm provider: %w", err)
	}

	index, err := vector.NewFromConfig(&cfg.Vector)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	chunker, err := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, cfg.RAG.ChunkUnit)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	source, err := rag.NewDirectorySource(cfg.RAG.CorpusPath, cfg.RAG.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes corpus: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	capabilities := capability.BuildRegistry(ctx, cfg.Capabilities)

	tools := tool.NewRegistry()
	todoDeps := todotool.Deps{
		Registry:   capabilities,
		Capability: cfg.Tools.TodoCapability,
		Store:      st,
	}
	calendarDeps := calendartool.Deps{
		Registry:   capabilities,
		Capability: cfg.Tools.CalendarCapability,
	}
	for _, t := range []tool.Tool{
		todotool.NewCreateTool(todoDeps),
		todotool.NewListTool(todoDeps),
		calendartool.NewCreateEventTool(calendarDeps),
		calendartool.NewListEventsTool(calendarDeps),
	} {
		if err := tools.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}

	sessions := session.NewService(st)
	retriever := rag.NewRetriever(emb, index, cfg.RAG.TopK)

	return &app{
		cfg:          cfg,
		embedder:     emb,
		provider:     provider,
		index:        index,
		ingestor:     rag.NewIngestor(source, chunker, emb, index),
		retriever:    retriever,
		store:        st,
		sessions:     sessions,
		capabilities: capabilities,
		tools:        tools,
		orchestrator: agent.New(provider, retriever, tools, sessions),
	}, nil
}

func (a *app) Close() {
	if err := a.provider.Close(); err != nil {
		slog.Warn("Failed to close llm provider", "error", err)
	}
	if err := a.index.Close(); err != nil {
		slog.Warn("Failed to close vector index", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close local store", "error", err)
	}
	a.capabilities.Close()
}
