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

// Package config defines Steward's YAML configuration.
//
// Backends for embedding, generation, and vector storage are selected
// here once at startup and are immutable for the process lifetime.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	Logger       LoggerConfig       `yaml:"logger,omitempty"`
	Server       ServerConfig       `yaml:"server,omitempty"`
	Embedder     EmbedderConfig     `yaml:"embedder,omitempty"`
	LLM          LLMConfig          `yaml:"llm,omitempty"`
	Vector       VectorConfig       `yaml:"vector,omitempty"`
	RAG          RAGConfig          `yaml:"rag,omitempty"`
	Store        StoreConfig        `yaml:"store,omitempty"`
	Capabilities []CapabilityConfig `yaml:"capabilities,omitempty"`
	Tools        ToolsConfig        `yaml:"tools,omitempty"`
}

// LoggerConfig controls slog initialization.
type LoggerConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // simple, verbose
	File   string `yaml:"file,omitempty"`   // empty = stderr
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// APIToken, when set, is required as a bearer token on /chat and /todos.
	APIToken string `yaml:"api_token,omitempty"`
}

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	Provider  string `yaml:"provider,omitempty"` // ollama, openai
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	Model     string `yaml:"model,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
	Timeout   int    `yaml:"timeout,omitempty"` // seconds
}

// LLMConfig selects the generation backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider,omitempty"` // ollama, openai
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Timeout     int     `yaml:"timeout,omitempty"` // seconds
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Provider string `yaml:"provider,omitempty"` // chromem, qdrant

	// Collection name for stored chunks.
	Collection string `yaml:"collection,omitempty"`

	Chromem ChromemConfig `yaml:"chromem,omitempty"`
	Qdrant  QdrantConfig  `yaml:"qdrant,omitempty"`
}

// ChromemConfig configures the embedded chromem-go index.
type ChromemConfig struct {
	// PersistPath for file persistence. Empty = memory only.
	PersistPath string `yaml:"persist_path,omitempty"`
	Compress    bool   `yaml:"compress,omitempty"`
}

// QdrantConfig configures the Qdrant gRPC client.
type QdrantConfig struct {
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

// RAGConfig controls ingestion and retrieval.
type RAGConfig struct {
	// CorpusPath is the notes directory ingested into the index.
	CorpusPath string `yaml:"corpus_path,omitempty"`

	// ChunkSize is the target chunk budget.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// ChunkOverlap is the overlap carried between adjacent chunks.
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"`

	// ChunkUnit is "chars" or "tokens" (tiktoken cl100k_base).
	ChunkUnit string `yaml:"chunk_unit,omitempty"`

	// TopK is the number of chunks retrieved per turn.
	TopK int `yaml:"top_k,omitempty"`

	// MaxFileSize skips larger corpus files (bytes).
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`
}

// StoreConfig configures the local sqlite fallback store.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// CapabilityConfig declares one external capability provider.
//
// A capability with missing required fields is skipped at startup, not
// registered-then-failing.
type CapabilityConfig struct {
	// Name is the registry key, e.g. "notion-todo" or "google-calendar".
	Name string `yaml:"name"`

	// Transport is "stdio" or "http".
	Transport string `yaml:"transport,omitempty"`

	// Command and Args spawn the stdio MCP server
	// (e.g. command: docker, args: [run, --rm, -i, mcp/notion]).
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`

	// Env is passed to the stdio subprocess.
	Env map[string]string `yaml:"env,omitempty"`

	// URL is the JSON-RPC endpoint for the http transport.
	URL string `yaml:"url,omitempty"`

	// Timeout bounds a single capability call (seconds).
	Timeout int `yaml:"timeout,omitempty"`
}

// ToolsConfig binds tools to capability names.
type ToolsConfig struct {
	// TodoCapability is the preferred provider for todo tools.
	TodoCapability string `yaml:"todo_capability,omitempty"`

	// CalendarCapability is the provider for calendar tools (no fallback).
	CalendarCapability string `yaml:"calendar_capability,omitempty"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "simple"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "ollama"
	}
	if c.Embedder.Model == "" && c.Embedder.Provider == "ollama" {
		c.Embedder.Model = "nomic-embed-text"
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 30
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.Model == "" && c.LLM.Provider == "ollama" {
		c.LLM.Model = "llama3"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120
	}

	if c.Vector.Provider == "" {
		c.Vector.Provider = "chromem"
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "notes"
	}

	if c.RAG.CorpusPath == "" {
		c.RAG.CorpusPath = "notes"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1200
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = c.RAG.ChunkSize / 5
	}
	if c.RAG.ChunkUnit == "" {
		c.RAG.ChunkUnit = "chars"
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.MaxFileSize == 0 {
		c.RAG.MaxFileSize = 1 << 20 // 1 MiB
	}

	if c.Store.Path == "" {
		c.Store.Path = "steward.db"
	}

	if c.Tools.TodoCapability == "" {
		c.Tools.TodoCapability = "notion-todo"
	}
	if c.Tools.CalendarCapability == "" {
		c.Tools.CalendarCapability = "google-calendar"
	}

	for i := range c.Capabilities {
		if c.Capabilities[i].Transport == "" {
			if c.Capabilities[i].Command != "" {
				c.Capabilities[i].Transport = "stdio"
			} else {
				c.Capabilities[i].Transport = "http"
			}
		}
		if c.Capabilities[i].Timeout == 0 {
			c.Capabilities[i].Timeout = 15
		}
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Embedder.Provider {
	case "ollama":
	case "openai":
		if c.Embedder.APIKey == "" {
			return fmt.Errorf("embedder: openai provider requires api_key")
		}
	default:
		return fmt.Errorf("embedder: unsupported provider %q (supported: ollama, openai)", c.Embedder.Provider)
	}

	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm: openai provider requires api_key")
		}
	default:
		return fmt.Errorf("llm: unsupported provider %q (supported: ollama, openai)", c.LLM.Provider)
	}

	switch c.Vector.Provider {
	case "chromem":
	case "qdrant":
		if c.Vector.Qdrant.Host == "" {
			return fmt.Errorf("vector: qdrant provider requires host")
		}
	default:
		return fmt.Errorf("vector: unsupported provider %q (supported: chromem, qdrant)", c.Vector.Provider)
	}

	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	switch c.RAG.ChunkUnit {
	case "chars", "tokens":
	default:
		return fmt.Errorf("rag: unsupported chunk_unit %q (supported: chars, tokens)", c.RAG.ChunkUnit)
	}
	if c.RAG.TopK < 1 {
		return fmt.Errorf("rag: top_k must be >= 1")
	}

	seen := make(map[string]bool, len(c.Capabilities))
	for _, cap := range c.Capabilities {
		if cap.Name == "" {
			return fmt.Errorf("capabilities: name is required")
		}
		if seen[cap.Name] {
			return fmt.Errorf("capabilities: duplicate name %q", cap.Name)
		}
		seen[cap.Name] = true
		switch cap.Transport {
		case "stdio":
			if cap.Command == "" {
				return fmt.Errorf("capability %q: stdio transport requires command", cap.Name)
			}
		case "http":
			if cap.URL == "" {
				return fmt.Errorf("capability %q: http transport requires url", cap.Name)
			}
		default:
			return fmt.Errorf("capability %q: unsupported transport %q", cap.Name, cap.Transport)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}

	return nil
}
