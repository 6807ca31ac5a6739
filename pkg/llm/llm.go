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

// Package llm abstracts text-generation backends with native tool calling.
//
// A Provider either returns free text or one or more structured tool-call
// requests; the orchestrator validates tool calls against the registered
// tool set, so providers only decode, never interpret.
package llm

import (
	"context"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a chat transcript sent to a provider.
type Message struct {
	Role    Role
	Content string

	// ToolCalls echoes a previous assistant tool-call turn.
	ToolCalls []ToolCall

	// ToolCallID and ToolName identify the call a RoleTool message answers.
	ToolCallID string
	ToolName   string
}

// ToolCall is a provider's structured request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition describes a callable tool for function calling.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Provider generates text or tool calls from a chat transcript.
// The concrete backend is selected once at startup and never switched.
type Provider interface {
	// Generate returns generated text, or tool calls when the model
	// decides to invoke one of the provided tools.
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []ToolCall, error)

	// Model returns the model name being used.
	Model() string

	// Close releases any resources held by the provider.
	Close() error
}
