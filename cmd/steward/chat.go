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
	"strings"
	"syscall"

	"github.com/mekanlabs/steward/pkg/agent"
)

// ChatCmd runs a single chat turn from the terminal.
type ChatCmd struct {
	Message []string `arg:"" help:"Message to send."`

	Session string `help:"Session identifier for conversation history." default:"cli"`
	Verbose bool   `short:"v" help:"Show retrieval sources and tool invocations."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.orchestrator.Handle(ctx, agent.Request{
		SessionID: c.Session,
		Message:   strings.Join(c.Message, " "),
	})
	if err != nil {
		return err
	}

	fmt.Println(resp.Reply)

	if c.Verbose {
		if len(resp.Sources) > 0 {
			fmt.Printf("\nSources: %s\n", strings.Join(resp.Sources, ", "))
		}
		if resp.RetrievalDegraded {
			fmt.Println("\n(note retrieval was unavailable for this turn)")
		}
		for _, inv := range resp.ToolInvocations {
			status := inv.CapabilityUsed
			if inv.Error != "" {
				status = "failed: " + inv.Error
			}
			fmt.Printf("Tool %s via %s\n", inv.Tool, status)
		}
	}
	return nil
}
