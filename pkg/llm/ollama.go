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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mekanlabs/steward/pkg/httpclient"
)

// OllamaProvider calls a local Ollama instance via its chat API with
// native function calling.
type OllamaProvider struct {
	client      *httpclient.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

// OllamaProviderConfig configures the Ollama generation backend.
type OllamaProviderConfig struct {
	// BaseURL for the Ollama API (default: http://localhost:11434).
	BaseURL string

	// Model name (default: llama3).
	Model string

	Temperature float64
	MaxTokens   int

	// Timeout for API requests (default: 120s).
	Timeout time.Duration
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Tools    []ollamaTool        `json:"tools,omitempty"`
	Options  *ollamaOptions      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaToolCall struct {
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

// NewOllamaProvider creates an Ollama generation provider.
func NewOllamaProvider(cfg OllamaProviderConfig) (*OllamaProvider, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "llama3"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OllamaProvider{
		client:      httpclient.New(httpclient.WithHTTPClient(&http.Client{Timeout: timeout})),
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate sends the transcript to Ollama and decodes text or tool calls.
func (p *OllamaProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error) {
	request := p.buildRequest(messages, tools)

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("Ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != "" {
		return "", nil, fmt.Errorf("Ollama API error: %s", response.Error)
	}

	var toolCalls []ToolCall
	for _, tc := range response.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return response.Message.Content, toolCalls, nil
}

func (p *OllamaProvider) buildRequest(messages []Message, tools []ToolDefinition) ollamaChatRequest {
	chatMessages := make([]ollamaChatMessage, 0, len(messages))
	for _, m := range messages {
		msg := ollamaChatMessage{
			Role:     string(m.Role),
			Content:  m.Content,
			ToolName: m.ToolName,
		}
		for _, tc := range m.ToolCalls {
			var otc ollamaToolCall
			otc.Type = "function"
			otc.Function.Name = tc.Name
			otc.Function.Arguments = tc.Arguments
			msg.ToolCalls = append(msg.ToolCalls, otc)
		}
		chatMessages = append(chatMessages, msg)
	}

	var ollamaTools []ollamaTool
	for _, t := range tools {
		ollamaTools = append(ollamaTools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	var options *ollamaOptions
	if p.temperature > 0 || p.maxTokens > 0 {
		options = &ollamaOptions{
			Temperature: p.temperature,
			NumPredict:  p.maxTokens,
		}
	}

	return ollamaChatRequest{
		Model:    p.model,
		Messages: chatMessages,
		Stream:   false,
		Tools:    ollamaTools,
		Options:  options,
	}
}

// Model returns the model name being used.
func (p *OllamaProvider) Model() string {
	return p.model
}

// Close releases any resources.
func (p *OllamaProvider) Close() error {
	return nil
}

var _ Provider = (*OllamaProvider)(nil)
