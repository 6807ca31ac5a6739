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

// Package store provides local SQLite persistence for todos and
// conversation logs. It backs the local fallback path when no external
// todo provider is reachable.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

// Todo is a locally stored todo item.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry is one persisted conversation turn.
type LogEntry struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Turn      int       `json:"turn"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const createTodosTableSQL = `
CREATE TABLE IF NOT EXISTS todos (
    id VARCHAR(36) PRIMARY KEY,
    title TEXT NOT NULL,
    done INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
)`

const createLogsTableSQL = `
CREATE TABLE IF NOT EXISTS conversation_logs (
    id VARCHAR(36) PRIMARY KEY,
    session VARCHAR(255) NOT NULL,
    turn INTEGER NOT NULL,
    role VARCHAR(32) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

const createLogsIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_conversation_logs_session ON conversation_logs(session, turn)`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range []string{createTodosTableSQL, createLogsTableSQL, createLogsIndexSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateTodo inserts a new todo and returns it.
func (s *Store) CreateTodo(ctx context.Context, title string) (*Todo, error) {
	if title == "" {
		return nil, fmt.Errorf("todo title is required")
	}

	todo := &Todo{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, title, done, created_at) VALUES (?, ?, ?, ?)`,
		todo.ID, todo.Title, todo.Done, todo.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}
	return todo, nil
}

// ListTodos returns all todos in creation order.
func (s *Store) ListTodos(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, done, created_at FROM todos ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]Todo, 0)
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Done, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// CompleteTodo marks a todo done. Returns sql.ErrNoRows if absent.
func (s *Store) CompleteTodo(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE todos SET done = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LogTurn persists one conversation turn.
func (s *Store) LogTurn(ctx context.Context, session string, turn int, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_logs (id, session, turn, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), session, turn, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

// ListTurns returns a session's persisted turns in order.
func (s *Store) ListTurns(ctx context.Context, session string) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, turn, role, content, created_at FROM conversation_logs WHERE session = ? ORDER BY turn, created_at`,
		session)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Session, &e.Turn, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
