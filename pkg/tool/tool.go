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

// Package tool defines the tools the agent can dispatch to and the
// registry the orchestrator selects them from.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mekanlabs/steward/pkg/llm"
)

// CapabilityLocalFallback is recorded in Result.CapabilityUsed when a
// tool served the request from local storage instead of an external
// provider.
const CapabilityLocalFallback = "local-fallback"

// Result is a successful tool invocation.
type Result struct {
	// Content is the structured payload returned to the model.
	Content map[string]any

	// CapabilityUsed names the provider that served the call, or
	// CapabilityLocalFallback.
	CapabilityUsed string
}

// Tool is one invocable operation.
type Tool interface {
	// Name is the identifier the model calls the tool by.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema is the JSON schema of the tool's arguments.
	Schema() map[string]any

	// Invoke runs the tool.
	Invoke(ctx context.Context, args map[string]any) (*Result, error)
}

// Registry holds the available tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q is already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the named tool, or false if not registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns tool definitions for the model, sorted by name.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
