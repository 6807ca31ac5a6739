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

// Package capability manages named external providers that tools can
// call: MCP servers for todo and calendar backends. Providers register
// once at startup and stay registered for the life of the process;
// only their availability changes.
package capability

import "context"

// Status of a registered capability.
type Status string

const (
	// StatusAvailable means the provider accepted its last probe or call.
	StatusAvailable Status = "available"

	// StatusUnavailable means the provider failed and callers should
	// fall back. Unavailable is sticky for the process lifetime.
	StatusUnavailable Status = "unavailable"
)

// Client is a connection to one external provider.
type Client interface {
	// Call invokes a named operation with the given arguments and
	// returns the provider's decoded response.
	Call(ctx context.Context, operation string, args map[string]any) (map[string]any, error)

	// Close releases the connection.
	Close() error
}
