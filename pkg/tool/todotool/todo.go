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

// Package todotool implements todo tools with a capability-first
// strategy: calls go to the configured external provider when it is
// available, and fall back to the local SQLite store when it is not.
// The result always records which path served the call.
package todotool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mekanlabs/steward/pkg/capability"
	"github.com/mekanlabs/steward/pkg/store"
	"github.com/mekanlabs/steward/pkg/tool"
)

// Deps are the shared dependencies of the todo tools.
type Deps struct {
	// Registry resolves the external provider. May be nil.
	Registry *capability.Registry

	// Capability is the provider name to try first.
	Capability string

	// Store is the local fallback. Required.
	Store *store.Store
}

// callCapability tries the external provider. The second return value
// reports whether the provider handled the call; a false means the
// caller should fall back locally.
func (d Deps) callCapability(ctx context.Context, operation string, args map[string]any) (map[string]any, bool) {
	if d.Registry == nil || d.Capability == "" || !d.Registry.Available(d.Capability) {
		return nil, false
	}

	reg, ok := d.Registry.Get(d.Capability)
	if !ok || reg.Client == nil {
		return nil, false
	}

	result, err := reg.Client.Call(ctx, operation, args)
	if err != nil {
		// One failure retires the provider for this process.
		slog.Warn("Todo provider call failed, falling back to local store",
			"capability", d.Capability, "operation", operation, "error", err)
		d.Registry.MarkUnavailable(d.Capability)
		return nil, false
	}
	return result, true
}

type createArgs struct {
	Title string `json:"title" jsonschema:"required,description=The todo item text"`
}

// CreateTool creates todo items.
type CreateTool struct {
	deps   Deps
	schema map[string]any
}

// NewCreateTool builds the create_todo tool.
func NewCreateTool(deps Deps) *CreateTool {
	return &CreateTool{
		deps:   deps,
		schema: tool.MustSchema[createArgs](),
	}
}

func (t *CreateTool) Name() string { return "create_todo" }

func (t *CreateTool) Description() string {
	return "Create a new todo item. Use when the user asks to remember, track, or be reminded of a task."
}

func (t *CreateTool) Schema() map[string]any { return t.schema }

// Invoke creates the todo via the external provider or the local store.
func (t *CreateTool) Invoke(ctx context.Context, args map[string]any) (*tool.Result, error) {
	title, _ := args["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, tool.NewError(tool.InvalidArguments, t.Name(), fmt.Errorf("title is required"))
	}

	if result, ok := t.deps.callCapability(ctx, "create_todo", map[string]any{"title": title}); ok {
		return &tool.Result{Content: result, CapabilityUsed: t.deps.Capability}, nil
	}

	todo, err := t.deps.Store.CreateTodo(ctx, title)
	if err != nil {
		return nil, tool.NewError(tool.PersistenceFailure, t.Name(), err)
	}

	return &tool.Result{
		Content: map[string]any{
			"id":         todo.ID,
			"title":      todo.Title,
			"done":       todo.Done,
			"created_at": todo.CreatedAt,
		},
		CapabilityUsed: tool.CapabilityLocalFallback,
	}, nil
}

type listArgs struct{}

// ListTool lists todo items.
type ListTool struct {
	deps   Deps
	schema map[string]any
}

// NewListTool builds the list_todos tool.
func NewListTool(deps Deps) *ListTool {
	return &ListTool{
		deps:   deps,
		schema: tool.MustSchema[listArgs](),
	}
}

func (t *ListTool) Name() string { return "list_todos" }

func (t *ListTool) Description() string {
	return "List the user's current todo items."
}

func (t *ListTool) Schema() map[string]any { return t.schema }

// Invoke lists todos via the external provider or the local store.
func (t *ListTool) Invoke(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if result, ok := t.deps.callCapability(ctx, "list_todos", nil); ok {
		return &tool.Result{Content: result, CapabilityUsed: t.deps.Capability}, nil
	}

	todos, err := t.deps.Store.ListTodos(ctx)
	if err != nil {
		return nil, tool.NewError(tool.PersistenceFailure, t.Name(), err)
	}

	items := make([]any, 0, len(todos))
	for _, todo := range todos {
		items = append(items, map[string]any{
			"id":         todo.ID,
			"title":      todo.Title,
			"done":       todo.Done,
			"created_at": todo.CreatedAt,
		})
	}

	return &tool.Result{
		Content:        map[string]any{"todos": items},
		CapabilityUsed: tool.CapabilityLocalFallback,
	}, nil
}

var (
	_ tool.Tool = (*CreateTool)(nil)
	_ tool.Tool = (*ListTool)(nil)
)
