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

package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubTool struct {
	name string
}

func (s stubTool) Name() string            { return s.name }
func (s stubTool) Description() string     { return "stub" }
func (s stubTool) Schema() map[string]any  { return map[string]any{"type": "object"} }
func (s stubTool) Invoke(context.Context, map[string]any) (*Result, error) {
	return &Result{Content: map[string]any{}}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(stubTool{name: "create_todo"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(stubTool{name: "create_todo"}); err == nil {
		t.Error("expected error for duplicate tool")
	}
	if err := r.Register(stubTool{name: ""}); err == nil {
		t.Error("expected error for unnamed tool")
	}

	if _, ok := r.Get("create_todo"); !ok {
		t.Error("expected registered tool to be found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing tool to be absent")
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"list_todos", "create_event", "create_todo"} {
		if err := r.Register(stubTool{name: name}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	if defs[0].Name != "create_event" || defs[2].Name != "list_todos" {
		t.Errorf("definitions not sorted: %v", defs)
	}
}

func TestGenerateSchema(t *testing.T) {
	type args struct {
		Title string `json:"title" jsonschema:"required,description=The title"`
		Count int    `json:"count,omitempty"`
	}

	schema, err := GenerateSchema[args]()
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("missing properties: %v", schema)
	}
	if _, ok := props["title"]; !ok {
		t.Errorf("missing title property: %v", props)
	}
}

func TestErrorKind(t *testing.T) {
	base := fmt.Errorf("boom")
	err := NewError(ProviderUnavailable, "create_event", base)

	if KindOf(err) != ProviderUnavailable {
		t.Errorf("unexpected kind: %s", KindOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped error to match")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != ProviderUnavailable {
		t.Error("expected kind to survive wrapping")
	}

	if KindOf(fmt.Errorf("plain")) != "" {
		t.Error("expected empty kind for plain error")
	}
}
