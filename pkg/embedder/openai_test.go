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

package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}

		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Input))
		}

		// Out of input order; the client must sort by index.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.4, 0.5}, "index": 1},
				{"embedding": []float32{0.1, 0.2}, "index": 0},
			},
		})
	}))
	defer server.Close()

	emb, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	vecs, err := emb.EmbedBatch(context.Background(), []string{"buy milk", "ship the beta"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(vecs))
	}
	if vecs[0][0] != 0.1 || vecs[1][0] != 0.4 {
		t.Errorf("embeddings not in input order: %v", vecs)
	}
}

func TestOpenAIEmbedSplitsBatches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Input) > 2 {
			t.Errorf("batch exceeds limit: %d inputs", len(req.Input))
		}

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float32{float32(i)}, "index": i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	emb, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, BatchSize: 2})
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Errorf("expected 3 embeddings, got %d", len(vecs))
	}
	if requests != 2 {
		t.Errorf("expected 2 API requests, got %d", requests)
	}
}

func TestOpenAIEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	emb, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	_, err = emb.EmbedBatch(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestOpenAIEmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid model", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	emb, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}

	_, err = emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for API error payload")
	}
}

func TestOpenAIEmbedderRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder(OpenAIConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
