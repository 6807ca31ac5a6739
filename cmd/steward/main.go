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

// Command steward is the CLI for the Steward personal assistant.
//
// Usage:
//
//	steward serve --config config.yaml
//	steward ingest --config config.yaml
//	steward chat "what are my goals for this quarter?"
//	steward validate --config config.yaml
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/mekanlabs/steward/pkg/config"
	"github.com/mekanlabs/steward/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the assistant HTTP server."`
	Ingest   IngestCmd   `cmd:"" help:"Index the notes corpus into the vector store."`
	Chat     ChatCmd     `cmd:"" help:"Run a single chat turn from the terminal."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration file."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile  string `help:"Log file path (empty = stderr)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("steward version %s\n", version)
	return nil
}

// ValidateCmd loads and validates the configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid\n", cli.Config)
	fmt.Printf("  embedder: %s (%s)\n", cfg.Embedder.Provider, cfg.Embedder.Model)
	fmt.Printf("  llm:      %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("  vector:   %s (collection %s)\n", cfg.Vector.Provider, cfg.Vector.Collection)
	fmt.Printf("  corpus:   %s\n", cfg.RAG.CorpusPath)
	if len(cfg.Capabilities) > 0 {
		fmt.Println("  capabilities:")
		for _, cap := range cfg.Capabilities {
			fmt.Printf("    - %s (%s)\n", cap.Name, cap.Transport)
		}
	}
	return nil
}

// loadConfig reads the config file named by --config, or falls back to
// the zero-config defaults (local Ollama, chromem, sqlite).
func loadConfig(cli *CLI) (*config.Config, error) {
	if cli.Config == "" {
		return config.Default(), nil
	}
	return config.Load(cli.Config)
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("steward"),
		kong.Description("Steward - personal assistant over your notes, todos, and calendar"),
		kong.UsageOnError(),
	)

	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(logger.ParseLevel(cli.LogLevel), output, "simple")

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
