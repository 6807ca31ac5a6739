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

// Package agent orchestrates one chat turn: validate, retrieve note
// context, let the model decide between answering and calling tools,
// dispatch tools, and compose the final reply.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mekanlabs/steward/pkg/llm"
	"github.com/mekanlabs/steward/pkg/rag"
	"github.com/mekanlabs/steward/pkg/session"
	"github.com/mekanlabs/steward/pkg/tool"
)

// State is the orchestrator's position in a turn. Exposed mainly for
// responses and metrics labels.
type State string

const (
	StateReceived     State = "received"
	StateRetrieving   State = "retrieving"
	StateDeciding     State = "deciding"
	StateAnswering    State = "answering"
	StateToolDispatch State = "tool_dispatch"
	StateResponding   State = "responding"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Retriever supplies note context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]rag.Chunk, error)
}

// Request is one user message.
type Request struct {
	// SessionID groups turns into a conversation. Empty means the
	// default session.
	SessionID string

	// Message is the user's text.
	Message string
}

// ToolInvocation is the audit record of one tool call within a turn.
type ToolInvocation struct {
	Tool           string `json:"tool"`
	CapabilityUsed string `json:"capability_used,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Response is the completed turn.
type Response struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	State     State  `json:"state"`

	// RetrievalDegraded is set when the reply was composed without
	// note context because retrieval failed.
	RetrievalDegraded bool `json:"retrieval_degraded,omitempty"`

	// Sources lists the note files that contributed context.
	Sources []string `json:"sources,omitempty"`

	// ToolInvocations audits every tool call made during the turn.
	ToolInvocations []ToolInvocation `json:"tool_invocations,omitempty"`
}

// Orchestrator runs chat turns.
type Orchestrator struct {
	provider  llm.Provider
	retriever Retriever
	tools     *tool.Registry
	sessions  *session.Service
}

// New creates an orchestrator.
func New(provider llm.Provider, retriever Retriever, tools *tool.Registry, sessions *session.Service) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		retriever: retriever,
		tools:     tools,
		sessions:  sessions,
	}
}

// Handle runs one turn. The user turn is recorded before any model or
// tool work, and the assistant turn only after the reply is fully
// composed: a cancelled request leaves just the user turn in history.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, &ValidationError{Msg: "message cannot be empty"}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	if err := o.sessions.AppendTurn(ctx, sessionID, session.RoleUser, message); err != nil {
		return nil, err
	}

	resp := &Response{SessionID: sessionID, State: StateReceived}

	// Explicit command prefixes bypass retrieval and decision.
	lower := strings.ToLower(message)
	switch {
	case strings.HasPrefix(lower, "todo:"):
		if err := o.handleTodoCommand(ctx, message, resp); err != nil {
			resp.State = StateFailed
			return resp, err
		}
	case strings.HasPrefix(lower, "event:"):
		if err := o.handleEventCommand(ctx, message, resp); err != nil {
			resp.State = StateFailed
			return resp, err
		}
	default:
		if err := o.converse(ctx, sessionID, message, resp); err != nil {
			resp.State = StateFailed
			o.recordProviderFailure(ctx, sessionID, err)
			return resp, err
		}
	}

	resp.State = StateResponding
	if err := ctx.Err(); err != nil {
		// Cancelled before the reply was committed; the user turn
		// stays, the assistant turn is never written.
		resp.State = StateFailed
		return resp, err
	}

	if err := o.sessions.AppendTurn(ctx, sessionID, session.RoleAssistant, resp.Reply); err != nil {
		resp.State = StateFailed
		return resp, err
	}

	resp.State = StateDone
	return resp, nil
}

// recordProviderFailure writes an assistant error marker to the
// conversation log when the model backend failed mid-turn, so the log
// shows the turn ended without a reply. Cancellations are not marked.
func (o *Orchestrator) recordProviderFailure(ctx context.Context, sessionID string, err error) {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return
	}
	marker := "[error] no reply: the model backend failed"
	if appendErr := o.sessions.AppendTurn(ctx, sessionID, session.RoleAssistant, marker); appendErr != nil {
		slog.Warn("Failed to record provider failure in conversation log",
			"session", sessionID, "error", appendErr)
	}
}

// converse is the default path: retrieve, decide, dispatch, compose.
func (o *Orchestrator) converse(ctx context.Context, sessionID, message string, resp *Response) error {
	resp.State = StateRetrieving

	var chunks []rag.Chunk
	if o.retriever != nil {
		retrieved, err := o.retriever.Retrieve(ctx, message)
		if err != nil {
			// Degraded, not fatal: answer without note context.
			slog.Warn("Retrieval failed, continuing without note context",
				"session", sessionID, "error", err)
			resp.RetrievalDegraded = true
		} else {
			chunks = retrieved
		}
	}

	seen := make(map[string]bool)
	for _, c := range chunks {
		if !seen[c.Source] {
			seen[c.Source] = true
			resp.Sources = append(resp.Sources, c.Source)
		}
	}

	resp.State = StateDeciding

	messages, err := o.buildMessages(ctx, sessionID, chunks)
	if err != nil {
		return err
	}

	content, toolCalls, err := o.provider.Generate(ctx, messages, o.tools.Definitions())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ProviderError{Err: err}
	}

	if len(toolCalls) == 0 {
		resp.State = StateAnswering
		content = strings.TrimSpace(content)
		if content == "" {
			// The model produced neither an answer nor a tool call.
			// Ask once more for a plain answer before giving up.
			content, err = o.recoverAmbiguousDecision(ctx, messages)
			if err != nil {
				return err
			}
		}
		resp.Reply = content
		return nil
	}

	// A call naming a tool outside the registry is a failed decision,
	// not a failed tool: retry for a plain answer on the same context.
	for _, call := range toolCalls {
		if _, ok := o.tools.Get(call.Name); !ok {
			slog.Warn("Model requested an unregistered tool, answering directly",
				"session", sessionID, "tool", call.Name)
			resp.State = StateAnswering
			reply, err := o.recoverAmbiguousDecision(ctx, messages)
			if err != nil {
				return err
			}
			resp.Reply = reply
			return nil
		}
	}

	resp.State = StateToolDispatch
	return o.dispatchAndCompose(ctx, messages, content, toolCalls, resp)
}

// buildMessages assembles the transcript for the decision call.
func (o *Orchestrator) buildMessages(ctx context.Context, sessionID string, chunks []rag.Chunk) ([]llm.Message, error) {
	system := systemPrompt
	if block := buildContextBlock(chunks); block != "" {
		system += "\n\n" + block
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	history, err := o.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages, nil
}

// recoverAmbiguousDecision retries without tools for a direct answer.
func (o *Orchestrator) recoverAmbiguousDecision(ctx context.Context, messages []llm.Message) (string, error) {
	content, _, err := o.provider.Generate(ctx, messages, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ProviderError{Err: err}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		content = "I'm not sure how to help with that. Could you rephrase?"
	}
	return content, nil
}

// dispatchAndCompose runs the requested tools and asks the model for
// the final reply. Tool failures are reported back to the model so the
// reply can explain them; they do not fail the turn.
func (o *Orchestrator) dispatchAndCompose(ctx context.Context, messages []llm.Message, content string, toolCalls []llm.ToolCall, resp *Response) error {
	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})

	for _, call := range toolCalls {
		invocation := ToolInvocation{Tool: call.Name}

		result, err := o.invokeTool(ctx, call)
		var toolContent string
		if err != nil {
			invocation.Error = err.Error()
			toolContent = fmt.Sprintf(`{"error": %q}`, err.Error())
			slog.Warn("Tool invocation failed", "tool", call.Name, "error", err)
		} else {
			invocation.CapabilityUsed = result.CapabilityUsed
			toolContent = formatToolContent(result.Content)
		}
		resp.ToolInvocations = append(resp.ToolInvocations, invocation)

		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    toolContent,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}

	// Replace the decision system prompt with the compose prompt for
	// the final call; tools are withheld so the model must answer.
	messages[0] = llm.Message{Role: llm.RoleSystem, Content: composeSystemPrompt}

	reply, _, err := o.provider.Generate(ctx, messages, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ProviderError{Err: err}
	}

	resp.Reply = strings.TrimSpace(reply)
	if resp.Reply == "" {
		resp.Reply = summarizeInvocations(resp.ToolInvocations)
	}
	return nil
}

func (o *Orchestrator) invokeTool(ctx context.Context, call llm.ToolCall) (*tool.Result, error) {
	t, ok := o.tools.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}
	return t.Invoke(ctx, call.Arguments)
}

// handleTodoCommand serves the explicit "todo: ..." syntax without a
// model round trip.
func (o *Orchestrator) handleTodoCommand(ctx context.Context, message string, resp *Response) error {
	resp.State = StateToolDispatch

	body := strings.TrimSpace(message[len("todo:"):])
	// An optional "| due date" suffix is passed through to the tool.
	title := body
	if idx := strings.Index(body, "|"); idx >= 0 {
		title = strings.TrimSpace(body[:idx])
	}
	if title == "" {
		return &ValidationError{Msg: "todo command needs text, like 'todo: Buy milk'"}
	}

	createTool, ok := o.tools.Get("create_todo")
	if !ok {
		return fmt.Errorf("create_todo tool is not registered")
	}

	result, err := createTool.Invoke(ctx, map[string]any{"title": title})
	if err != nil {
		resp.ToolInvocations = append(resp.ToolInvocations, ToolInvocation{
			Tool:  "create_todo",
			Error: err.Error(),
		})
		return err
	}

	resp.ToolInvocations = append(resp.ToolInvocations, ToolInvocation{
		Tool:           "create_todo",
		CapabilityUsed: result.CapabilityUsed,
	})
	resp.Reply = fmt.Sprintf("Created todo: %q.", title)
	return nil
}

// handleEventCommand serves the explicit
// "event: Title | start | end" syntax without a model round trip.
func (o *Orchestrator) handleEventCommand(ctx context.Context, message string, resp *Response) error {
	resp.State = StateToolDispatch

	body := strings.TrimSpace(message[len("event:"):])
	parts := strings.Split(body, "|")
	if len(parts) < 3 {
		return &ValidationError{
			Msg: "invalid event syntax, use: event: Title | 2025-11-15 09:00 | 2025-11-15 10:00",
		}
	}

	title := strings.TrimSpace(parts[0])
	start, err := parseEventTime(parts[1])
	if err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	end, err := parseEventTime(parts[2])
	if err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	eventTool, ok := o.tools.Get("create_event")
	if !ok {
		return fmt.Errorf("create_event tool is not registered")
	}

	result, err := eventTool.Invoke(ctx, map[string]any{
		"title": title,
		"start": start.Format("2006-01-02T15:04:05"),
		"end":   end.Format("2006-01-02T15:04:05"),
	})
	if err != nil {
		resp.ToolInvocations = append(resp.ToolInvocations, ToolInvocation{
			Tool:  "create_event",
			Error: err.Error(),
		})
		return err
	}

	resp.ToolInvocations = append(resp.ToolInvocations, ToolInvocation{
		Tool:           "create_event",
		CapabilityUsed: result.CapabilityUsed,
	})
	resp.Reply = fmt.Sprintf("Created calendar event %q for %s.", title, humanDateTimeRange(start, end))
	return nil
}

func formatToolContent(content map[string]any) string {
	if len(content) == 0 {
		return "{}"
	}
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprintf("%v", content)
	}
	return string(data)
}

func summarizeInvocations(invocations []ToolInvocation) string {
	for _, inv := range invocations {
		if inv.Error != "" {
			return fmt.Sprintf("I tried to use %s but it failed: %s", inv.Tool, inv.Error)
		}
	}
	if len(invocations) > 0 {
		return "Done."
	}
	return "I'm not sure how to help with that."
}
