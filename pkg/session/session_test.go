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

package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mekanlabs/steward/pkg/store"
)

func TestAppendAndHistory(t *testing.T) {
	s := NewService(nil)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "s1", RoleUser, "hello"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if err := s.AppendTurn(ctx, "s1", RoleAssistant, "hi"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if err := s.AppendTurn(ctx, "s2", RoleUser, "other session"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	history, err := s.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[1].Role != RoleAssistant {
		t.Errorf("unexpected roles: %+v", history)
	}

	empty, err := s.History(ctx, "unknown")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty history for unknown session, got %d", len(empty))
	}
}

func TestAppendRequiresSessionID(t *testing.T) {
	s := NewService(nil)
	if err := s.AppendTurn(context.Background(), "", RoleUser, "hello"); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestHistorySurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.db")
	ctx := context.Background()

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	s := NewService(st)
	if err := s.AppendTurn(ctx, "s1", RoleUser, "remember this"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	fresh := NewService(reopened)
	history, err := fresh.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Content != "remember this" {
		t.Errorf("unexpected history after restart: %+v", history)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := NewService(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendTurn(ctx, "s1", RoleUser, "turn")
		}()
	}
	wg.Wait()

	history, err := s.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 20 {
		t.Errorf("expected 20 turns, got %d", len(history))
	}
}
