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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mekanlabs/steward/pkg/httpclient"
)

const mcpProtocolVersion = "2024-11-05"

// StdioMCPClient talks to an MCP server running as a subprocess.
//
// The connection is lazy: the subprocess starts on the first Call so a
// dead provider does not block startup.
type StdioMCPClient struct {
	name    string
	command string
	args    []string
	env     []string
	timeout time.Duration

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// StdioMCPConfig configures a subprocess MCP provider.
type StdioMCPConfig struct {
	// Name of the capability, used in logs and client info.
	Name string

	// Command to launch the server.
	Command string

	// Args for the command.
	Args []string

	// Env as "KEY=VALUE" entries for the subprocess.
	Env []string

	// Timeout per call (default: 15s).
	Timeout time.Duration
}

// NewStdioMCPClient creates a subprocess MCP client. The subprocess is
// not started until the first call.
func NewStdioMCPClient(cfg StdioMCPConfig) (*StdioMCPClient, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("command is required for stdio transport")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &StdioMCPClient{
		name:    cfg.Name,
		command: cfg.Command,
		args:    cfg.Args,
		env:     cfg.Env,
		timeout: cfg.Timeout,
	}, nil
}

func (c *StdioMCPClient) connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	mcpClient, err := client.NewStdioMCPClient(c.command, c.env, c.args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "steward",
		Version: "1.0.0",
	}
	initReq.Params.ProtocolVersion = mcpProtocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

// Call invokes the named MCP tool and returns its decoded response.
func (c *StdioMCPClient) Call(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("capability %s: %w", c.name, err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = operation
	req.Params.Arguments = args

	resp, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("capability %s: call failed: %w", c.name, err)
	}

	return parseCallResult(resp)
}

// Close stops the subprocess if it was started.
func (c *StdioMCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.connected = false
	return err
}

// parseCallResult flattens an MCP tool result into a plain map.
func parseCallResult(resp *mcp.CallToolResult) (map[string]any, error) {
	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}

	if resp.IsError {
		msg := "unknown error"
		if len(texts) > 0 {
			msg = texts[0]
		}
		return nil, fmt.Errorf("provider error: %s", msg)
	}

	result := make(map[string]any)
	switch len(texts) {
	case 0:
	case 1:
		// Providers usually return a single JSON or text payload.
		var decoded map[string]any
		if err := json.Unmarshal([]byte(texts[0]), &decoded); err == nil {
			return decoded, nil
		}
		result["result"] = texts[0]
	default:
		items := make([]any, len(texts))
		for i, t := range texts {
			items[i] = t
		}
		result["results"] = items
	}
	return result, nil
}

// HTTPMCPClient talks to an MCP server over HTTP using JSON-RPC 2.0.
type HTTPMCPClient struct {
	name    string
	url     string
	timeout time.Duration
	client  *httpclient.Client

	mu     sync.Mutex
	nextID int
}

// HTTPMCPConfig configures an HTTP MCP provider.
type HTTPMCPConfig struct {
	// Name of the capability.
	Name string

	// URL of the MCP endpoint.
	URL string

	// Timeout per call (default: 15s).
	Timeout time.Duration
}

// NewHTTPMCPClient creates an HTTP MCP client.
func NewHTTPMCPClient(cfg HTTPMCPConfig) (*HTTPMCPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required for http transport")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &HTTPMCPClient{
		name:    cfg.Name,
		url:     cfg.URL,
		timeout: cfg.Timeout,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		),
		nextID: 1,
	}, nil
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call invokes the named MCP tool via JSON-RPC tools/call.
func (c *HTTPMCPClient) Call(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.rpc(ctx, "tools/call", map[string]any{
		"name":      operation,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("capability %s: %w", c.name, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("capability %s: provider error %d: %s", c.name, resp.Error.Code, resp.Error.Message)
	}

	var result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("capability %s: failed to parse result: %w", c.name, err)
	}

	var texts []string
	for _, content := range result.Content {
		if content.Type == "text" {
			texts = append(texts, content.Text)
		}
	}

	if result.IsError {
		msg := "unknown error"
		if len(texts) > 0 {
			msg = texts[0]
		}
		return nil, fmt.Errorf("capability %s: provider error: %s", c.name, msg)
	}

	out := make(map[string]any)
	switch len(texts) {
	case 0:
	case 1:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(texts[0]), &decoded); err == nil {
			return decoded, nil
		}
		out["result"] = texts[0]
	default:
		items := make([]any, len(texts))
		for i, t := range texts {
			items[i] = t
		}
		out["results"] = items
	}
	return out, nil
}

// Probe checks the provider with an initialize handshake.
func (c *HTTPMCPClient) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": mcpProtocolVersion,
		"clientInfo": map[string]any{
			"name":    "steward",
			"version": "1.0.0",
		},
		"capabilities": map[string]any{},
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

func (c *HTTPMCPClient) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(responseBody))
	}

	var resp jsonRPCResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

// Close releases the HTTP client. Nothing to tear down.
func (c *HTTPMCPClient) Close() error {
	return nil
}

var (
	_ Client = (*StdioMCPClient)(nil)
	_ Client = (*HTTPMCPClient)(nil)
)
