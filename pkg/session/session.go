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

// Package session tracks per-session conversation history. History is
// append-only: turns are added one at a time and never rewritten, so a
// cancelled request can leave the user turn in place without a
// dangling assistant reply.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mekanlabs/steward/pkg/store"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionState struct {
	turns    []Turn
	hydrated bool
}

// Service keeps conversation history in memory and mirrors it to the
// store. Appends within one session are serialized; different sessions
// do not block each other beyond map access.
type Service struct {
	store *store.Store

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewService creates a session service backed by the given store.
// A nil store keeps history in memory only.
func NewService(st *store.Store) *Service {
	return &Service{
		store:    st,
		sessions: make(map[string]*sessionState),
	}
}

func (s *Service) state(ctx context.Context, sessionID string) (*sessionState, error) {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[sessionID] = st
	}

	if !st.hydrated {
		if s.store != nil {
			entries, err := s.store.ListTurns(ctx, sessionID)
			if err != nil {
				return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
			}
			for _, e := range entries {
				st.turns = append(st.turns, Turn{
					Role:      e.Role,
					Content:   e.Content,
					CreatedAt: e.CreatedAt,
				})
			}
		}
		st.hydrated = true
	}
	return st, nil
}

// AppendTurn adds one turn to a session, persisting it if a store is
// configured. Persistence failures are logged but do not lose the
// in-memory turn.
func (s *Service) AppendTurn(ctx context.Context, sessionID, role, content string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	turn := Turn{Role: role, Content: content, CreatedAt: time.Now().UTC()}
	st.turns = append(st.turns, turn)

	if s.store != nil {
		if err := s.store.LogTurn(ctx, sessionID, len(st.turns)-1, role, content); err != nil {
			slog.Warn("Failed to persist conversation turn",
				"session", sessionID, "role", role, "error", err)
		}
	}
	return nil
}

// History returns a copy of the session's turns in order. An unknown
// session yields empty history.
func (s *Service) History(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out, nil
}
