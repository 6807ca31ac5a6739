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

package todotool

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mekanlabs/steward/pkg/capability"
	"github.com/mekanlabs/steward/pkg/store"
	"github.com/mekanlabs/steward/pkg/tool"
)

type fakeClient struct {
	fail  bool
	calls []string
}

func (f *fakeClient) Call(_ context.Context, operation string, args map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, operation)
	if f.fail {
		return nil, fmt.Errorf("provider down")
	}
	return map[string]any{"id": "remote-1", "operation": operation}, nil
}

func (f *fakeClient) Close() error { return nil }

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUsesCapability(t *testing.T) {
	registry := capability.NewRegistry()
	client := &fakeClient{}
	if err := registry.Register("notion-todo", client, capability.StatusAvailable); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	create := NewCreateTool(Deps{Registry: registry, Capability: "notion-todo", Store: newStore(t)})

	result, err := create.Invoke(context.Background(), map[string]any{"title": "buy milk"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.CapabilityUsed != "notion-todo" {
		t.Errorf("expected capability notion-todo, got %s", result.CapabilityUsed)
	}
	if len(client.calls) != 1 || client.calls[0] != "create_todo" {
		t.Errorf("unexpected provider calls: %v", client.calls)
	}
}

func TestCreateFallsBackWhenProviderFails(t *testing.T) {
	registry := capability.NewRegistry()
	client := &fakeClient{fail: true}
	if err := registry.Register("notion-todo", client, capability.StatusAvailable); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	st := newStore(t)
	create := NewCreateTool(Deps{Registry: registry, Capability: "notion-todo", Store: st})
	ctx := context.Background()

	result, err := create.Invoke(ctx, map[string]any{"title": "buy milk"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.CapabilityUsed != tool.CapabilityLocalFallback {
		t.Errorf("expected local fallback, got %s", result.CapabilityUsed)
	}

	// The todo must exist locally.
	todos, err := st.ListTodos(ctx)
	if err != nil {
		t.Fatalf("ListTodos failed: %v", err)
	}
	if len(todos) != 1 || todos[0].Title != "buy milk" {
		t.Errorf("unexpected todos: %+v", todos)
	}

	// One failure retires the provider: the next call must not touch it.
	if registry.Available("notion-todo") {
		t.Error("expected capability to be marked unavailable")
	}
	if _, err := create.Invoke(ctx, map[string]any{"title": "second"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("expected no further provider calls, got %v", client.calls)
	}
}

func TestCreateWithoutCapability(t *testing.T) {
	create := NewCreateTool(Deps{Store: newStore(t)})

	result, err := create.Invoke(context.Background(), map[string]any{"title": "water plants"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.CapabilityUsed != tool.CapabilityLocalFallback {
		t.Errorf("expected local fallback, got %s", result.CapabilityUsed)
	}
	if result.Content["title"] != "water plants" {
		t.Errorf("unexpected content: %v", result.Content)
	}
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	create := NewCreateTool(Deps{Store: newStore(t)})

	_, err := create.Invoke(context.Background(), map[string]any{"title": "   "})
	if err == nil {
		t.Fatal("expected error for empty title")
	}
	if tool.KindOf(err) != tool.InvalidArguments {
		t.Errorf("expected InvalidArguments, got %s", tool.KindOf(err))
	}
}

func TestListLocal(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if _, err := st.CreateTodo(ctx, "existing"); err != nil {
		t.Fatalf("CreateTodo failed: %v", err)
	}

	list := NewListTool(Deps{Store: st})
	result, err := list.Invoke(ctx, nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.CapabilityUsed != tool.CapabilityLocalFallback {
		t.Errorf("expected local fallback, got %s", result.CapabilityUsed)
	}
	items, ok := result.Content["todos"].([]any)
	if !ok || len(items) != 1 {
		t.Errorf("unexpected todos payload: %v", result.Content)
	}
}

func TestListUsesCapability(t *testing.T) {
	registry := capability.NewRegistry()
	client := &fakeClient{}
	if err := registry.Register("notion-todo", client, capability.StatusAvailable); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	list := NewListTool(Deps{Registry: registry, Capability: "notion-todo", Store: newStore(t)})
	result, err := list.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.CapabilityUsed != "notion-todo" {
		t.Errorf("expected capability notion-todo, got %s", result.CapabilityUsed)
	}
}
