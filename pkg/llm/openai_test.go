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

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGenerate_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role":    "assistant",
						"content": "",
						"tool_calls": []map[string]any{
							{
								"id":   "call_abc123",
								"type": "function",
								"function": map[string]any{
									"name":      "create_todo",
									"arguments": `{"title":"buy milk"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIProviderConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, calls, err := provider.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "remind me to buy milk"},
	}, []ToolDefinition{
		{Name: "create_todo", Description: "Create a todo item", Parameters: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "call_abc123" {
		t.Errorf("unexpected tool call ID: %s", calls[0].ID)
	}
	if calls[0].Arguments["title"] != "buy milk" {
		t.Errorf("unexpected arguments: %v", calls[0].Arguments)
	}
}

func TestOpenAIGenerate_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role":    "assistant",
						"content": "Done.",
					},
					"finish_reason": "stop",
				},
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(OpenAIProviderConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	text, calls, err := provider.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Done." {
		t.Errorf("unexpected text: %q", text)
	}
	if len(calls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(calls))
	}
}

func TestOpenAIRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIProviderConfig{}); err == nil {
		t.Fatal("expected error when API key is missing")
	}
}
