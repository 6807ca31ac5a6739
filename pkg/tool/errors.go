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

package tool

import (
	"errors"
	"fmt"
)

// ErrorKind classifies tool failures for the orchestrator.
type ErrorKind string

const (
	// ProviderUnavailable means no provider could serve the call and
	// the tool has no fallback.
	ProviderUnavailable ErrorKind = "provider_unavailable"

	// InvalidArguments means the model supplied arguments the tool
	// rejects.
	InvalidArguments ErrorKind = "invalid_arguments"

	// PersistenceFailure means local storage failed.
	PersistenceFailure ErrorKind = "persistence_failure"
)

// Error is a classified tool failure.
type Error struct {
	Kind ErrorKind
	Tool string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a classified tool failure.
func NewError(kind ErrorKind, tool string, err error) *Error {
	return &Error{Kind: kind, Tool: tool, Err: err}
}

// KindOf returns err's classification, or "" if it is not a tool error.
func KindOf(err error) ErrorKind {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.Kind
	}
	return ""
}
