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

// Package calendartool implements calendar tools. Unlike todos there
// is no meaningful local substitute for a calendar, so these tools are
// capability-only and fail cleanly when the provider is down.
package calendartool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mekanlabs/steward/pkg/capability"
	"github.com/mekanlabs/steward/pkg/tool"
)

// Deps are the shared dependencies of the calendar tools.
type Deps struct {
	// Registry resolves the external provider. May be nil.
	Registry *capability.Registry

	// Capability is the provider name.
	Capability string
}

func (d Deps) call(ctx context.Context, toolName, operation string, args map[string]any) (*tool.Result, error) {
	if d.Registry == nil || d.Capability == "" || !d.Registry.Available(d.Capability) {
		return nil, tool.NewError(tool.ProviderUnavailable, toolName,
			fmt.Errorf("calendar provider %q is not available", d.Capability))
	}

	reg, ok := d.Registry.Get(d.Capability)
	if !ok || reg.Client == nil {
		return nil, tool.NewError(tool.ProviderUnavailable, toolName,
			fmt.Errorf("calendar provider %q is not registered", d.Capability))
	}

	result, err := reg.Client.Call(ctx, operation, args)
	if err != nil {
		d.Registry.MarkUnavailable(d.Capability)
		return nil, tool.NewError(tool.ProviderUnavailable, toolName, err)
	}

	return &tool.Result{Content: result, CapabilityUsed: d.Capability}, nil
}

type createEventArgs struct {
	Title string `json:"title" jsonschema:"required,description=Event title"`
	Start string `json:"start" jsonschema:"required,description=Event start in RFC 3339 or natural language"`
	End   string `json:"end,omitempty" jsonschema:"description=Event end; defaults to one hour after start"`
}

// CreateEventTool creates calendar events.
type CreateEventTool struct {
	deps   Deps
	schema map[string]any
}

// NewCreateEventTool builds the create_event tool.
func NewCreateEventTool(deps Deps) *CreateEventTool {
	return &CreateEventTool{
		deps:   deps,
		schema: tool.MustSchema[createEventArgs](),
	}
}

func (t *CreateEventTool) Name() string { return "create_event" }

func (t *CreateEventTool) Description() string {
	return "Create a calendar event. Use when the user schedules something at a specific time."
}

func (t *CreateEventTool) Schema() map[string]any { return t.schema }

// Invoke creates the event via the external provider.
func (t *CreateEventTool) Invoke(ctx context.Context, args map[string]any) (*tool.Result, error) {
	title, _ := args["title"].(string)
	start, _ := args["start"].(string)
	if strings.TrimSpace(title) == "" || strings.TrimSpace(start) == "" {
		return nil, tool.NewError(tool.InvalidArguments, t.Name(),
			fmt.Errorf("title and start are required"))
	}

	callArgs := map[string]any{"title": title, "start": start}
	if end, _ := args["end"].(string); strings.TrimSpace(end) != "" {
		callArgs["end"] = end
	}

	return t.deps.call(ctx, t.Name(), "create_event", callArgs)
}

type listEventsArgs struct {
	Range string `json:"range,omitempty" jsonschema:"description=Time range to list,enum=today|tomorrow|week"`
}

// ListEventsTool lists upcoming calendar events.
type ListEventsTool struct {
	deps   Deps
	schema map[string]any
}

// NewListEventsTool builds the list_events tool.
func NewListEventsTool(deps Deps) *ListEventsTool {
	return &ListEventsTool{
		deps:   deps,
		schema: tool.MustSchema[listEventsArgs](),
	}
}

func (t *ListEventsTool) Name() string { return "list_events" }

func (t *ListEventsTool) Description() string {
	return "List upcoming calendar events, optionally limited to today, tomorrow, or this week."
}

func (t *ListEventsTool) Schema() map[string]any { return t.schema }

// Invoke lists events via the external provider.
func (t *ListEventsTool) Invoke(ctx context.Context, args map[string]any) (*tool.Result, error) {
	callArgs := map[string]any{}
	if r, _ := args["range"].(string); r != "" {
		callArgs["range"] = r
	}
	return t.deps.call(ctx, t.Name(), "list_events", callArgs)
}

var (
	_ tool.Tool = (*CreateEventTool)(nil)
	_ tool.Tool = (*ListEventsTool)(nil)
)
