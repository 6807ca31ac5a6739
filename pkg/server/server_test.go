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

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mekanlabs/steward/pkg/agent"
	"github.com/mekanlabs/steward/pkg/config"
	"github.com/mekanlabs/steward/pkg/llm"
	"github.com/mekanlabs/steward/pkg/session"
	"github.com/mekanlabs/steward/pkg/store"
	"github.com/mekanlabs/steward/pkg/tool"
	"github.com/mekanlabs/steward/pkg/tool/todotool"
)

type staticProvider struct {
	reply string
}

func (p staticProvider) Generate(context.Context, []llm.Message, []llm.ToolDefinition) (string, []llm.ToolCall, error) {
	return p.reply, nil, nil
}

func (p staticProvider) Model() string { return "static" }
func (p staticProvider) Close() error  { return nil }

func newTestServer(t *testing.T, apiToken string) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	tools := tool.NewRegistry()
	if err := tools.Register(todotool.NewCreateTool(todotool.Deps{Store: st})); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	orchestrator := agent.New(staticProvider{reply: "hello there"}, nil, tools, session.NewService(nil))

	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: 0, APIToken: apiToken}
	return New(cfg, orchestrator, st), st
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")

	body := strings.NewReader(`{"session_id": "s1", "message": "hi"}`)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/chat", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp agent.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Reply != "hello there" {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}
	if resp.State != agent.StateDone {
		t.Errorf("unexpected state: %s", resp.State)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": ""}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatRejectsBadJSON(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/chat", strings.NewReader("not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBearerTokenAuth(t *testing.T) {
	s, _ := newTestServer(t, "secret-token")

	// Missing token
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/todos", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Wrong token
	req := httptest.NewRequest("GET", "/todos", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	// Correct token
	req = httptest.NewRequest("GET", "/todos", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	// Health stays open
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", rec.Code)
	}
}

func TestTodosEndpoint(t *testing.T) {
	s, st := newTestServer(t, "")

	if _, err := st.CreateTodo(context.Background(), "buy milk"); err != nil {
		t.Fatalf("CreateTodo failed: %v", err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/todos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Todos []store.Todo `json:"todos"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Todos) != 1 || resp.Todos[0].Title != "buy milk" {
		t.Errorf("unexpected todos: %+v", resp.Todos)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")

	// Generate one measured request first.
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "steward_http_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}
