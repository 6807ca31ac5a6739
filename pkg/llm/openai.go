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

	"github.com/mekanlabs/steward/pkg/httpclient"
)

// OpenAIProvider calls the OpenAI chat-completions API (or any
// API-compatible server) with native function calling.
type OpenAIProvider struct {
	client      *httpclient.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

// OpenAIProviderConfig configures the OpenAI generation backend.
type OpenAIProviderConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL for the API (default: https://api.openai.com/v1).
	BaseURL string

	// Model name (default: gpt-4o-mini).
	Model string

	Temperature float64
	MaxTokens   int

	// Timeout for API requests (default: 120s).
	Timeout time.Duration
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Tools       []openaiTool    `json:"tools,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiTool struct {
	Type     string             `json:"type"`
	Function openaiToolFunction `json:"function"`
}

type openaiToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // JSON-encoded string
	} `json:"function"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates an OpenAI generation provider.
func NewOpenAIProvider(cfg OpenAIProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for OpenAI provider")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIProvider{
		client:      httpclient.New(httpclient.WithHTTPClient(&http.Client{Timeout: timeout})),
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate sends the transcript to OpenAI and decodes text or tool calls.
func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error) {
	request := p.buildRequest(messages, tools)

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("failed to send request to OpenAI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != nil {
		return "", nil, fmt.Errorf("OpenAI API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", nil, fmt.Errorf("OpenAI API returned no choices")
	}

	choice := response.Choices[0]

	var toolCalls []ToolCall
	for _, tc := range choice.Message.ToolCalls {
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			// Malformed argument JSON is a decision failure for the
			// orchestrator to recover from, not a transport error.
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = nil
			}
		}
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return choice.Message.Content, toolCalls, nil
}

func (p *OpenAIProvider) buildRequest(messages []Message, tools []ToolDefinition) openaiChatRequest {
	chatMessages := make([]openaiMessage, 0, len(messages))
	for _, m := range messages {
		msg := openaiMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			var otc openaiToolCall
			otc.ID = tc.ID
			otc.Type = "function"
			otc.Function.Name = tc.Name
			if encoded, err := json.Marshal(tc.Arguments); err == nil {
				otc.Function.Arguments = string(encoded)
			}
			msg.ToolCalls = append(msg.ToolCalls, otc)
		}
		chatMessages = append(chatMessages, msg)
	}

	var openaiTools []openaiTool
	for _, t := range tools {
		openaiTools = append(openaiTools, openaiTool{
			Type: "function",
			Function: openaiToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return openaiChatRequest{
		Model:       p.model,
		Messages:    chatMessages,
		Tools:       openaiTools,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
}

// Model returns the model name being used.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Close releases any resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

var _ Provider = (*OpenAIProvider)(nil)
