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

package capability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mekanlabs/steward/pkg/config"
)

// BuildRegistry creates clients for every configured capability and
// registers them. A provider that cannot even be constructed is skipped
// with a warning; one that constructs but fails its startup probe is
// registered unavailable, so tools see the name and fall back cleanly.
// Probes run concurrently so one slow endpoint does not stall startup.
func BuildRegistry(ctx context.Context, configs []config.CapabilityConfig) *Registry {
	registry := NewRegistry()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, cfg := range configs {
		client, err := newClient(cfg)
		if err != nil {
			slog.Warn("Skipping capability with invalid configuration",
				"name", cfg.Name, "error", err)
			continue
		}

		group.Go(func() error {
			status := StatusAvailable
			if err := probe(groupCtx, client); err != nil {
				slog.Warn("Capability failed startup probe, registering as unavailable",
					"name", cfg.Name, "error", err)
				status = StatusUnavailable
			}

			if err := registry.Register(cfg.Name, client, status); err != nil {
				slog.Warn("Failed to register capability", "name", cfg.Name, "error", err)
				_ = client.Close()
			}
			return nil
		})
	}
	_ = group.Wait()

	return registry
}

func newClient(cfg config.CapabilityConfig) (Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second

	switch cfg.Transport {
	case "stdio":
		return NewStdioMCPClient(StdioMCPConfig{
			Name:    cfg.Name,
			Command: cfg.Command,
			Args:    cfg.Args,
			Env:     envList(cfg.Env),
			Timeout: timeout,
		})
	case "http":
		return NewHTTPMCPClient(HTTPMCPConfig{
			Name:    cfg.Name,
			URL:     cfg.URL,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported capability transport: %s", cfg.Transport)
	}
}

// envList flattens the config env map into the sorted "KEY=VALUE"
// entries the subprocess expects.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	entries := make([]string, 0, len(env))
	for key, value := range env {
		entries = append(entries, key+"="+value)
	}
	sort.Strings(entries)
	return entries
}

// probe checks reachability at startup. Stdio providers connect lazily
// on first call, so only HTTP providers are probed here.
func probe(ctx context.Context, client Client) error {
	if httpClient, ok := client.(*HTTPMCPClient); ok {
		return httpClient.Probe(ctx)
	}
	return nil
}
