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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMCPClientCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("unexpected jsonrpc version: %s", req.JSONRPC)
		}
		if req.Method != "tools/call" {
			t.Errorf("unexpected method: %s", req.Method)
		}

		params, ok := req.Params.(map[string]any)
		if !ok || params["name"] != "create_todo" {
			t.Errorf("unexpected params: %v", req.Params)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]any{
				"content": []map[string]any{
					{"type": "text", "text": `{"id":"abc","title":"buy milk"}`},
				},
			},
		})
	}))
	defer server.Close()

	c, err := NewHTTPMCPClient(HTTPMCPConfig{Name: "notion-todo", URL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	result, err := c.Call(context.Background(), "create_todo", map[string]any{"title": "buy milk"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result["id"] != "abc" {
		t.Errorf("expected decoded JSON payload, got %v", result)
	}
}

func TestHTTPMCPClientProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]any{
				"isError": true,
				"content": []map[string]any{
					{"type": "text", "text": "database locked"},
				},
			},
		})
	}))
	defer server.Close()

	c, err := NewHTTPMCPClient(HTTPMCPConfig{Name: "cap", URL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := c.Call(context.Background(), "anything", nil); err == nil {
		t.Fatal("expected error for isError result")
	}
}

func TestHTTPMCPClientUnreachable(t *testing.T) {
	c, err := NewHTTPMCPClient(HTTPMCPConfig{Name: "cap", URL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := c.Call(context.Background(), "anything", nil); err == nil {
		t.Fatal("expected error for unreachable provider")
	}
	if err := c.Probe(context.Background()); err == nil {
		t.Fatal("expected probe failure for unreachable provider")
	}
}

func TestStdioMCPClientRequiresCommand(t *testing.T) {
	if _, err := NewStdioMCPClient(StdioMCPConfig{Name: "cap"}); err == nil {
		t.Fatal("expected error when command is missing")
	}
}
