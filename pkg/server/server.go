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

// Package server exposes the assistant over HTTP: chat, todo listing,
// health, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mekanlabs/steward/pkg/agent"
	"github.com/mekanlabs/steward/pkg/config"
	"github.com/mekanlabs/steward/pkg/store"
)

// Server is the HTTP front end.
type Server struct {
	orchestrator *agent.Orchestrator
	store        *store.Store
	metrics      *metrics
	apiToken     string

	httpServer *http.Server
}

// New creates the HTTP server.
func New(cfg *config.ServerConfig, orchestrator *agent.Orchestrator, st *store.Store) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        st,
		metrics:      newMetrics(),
		apiToken:     cfg.APIToken,
	}

	router := chi.NewRouter()
	router.Use(s.metricsMiddleware)

	router.Get("/healthz", s.handleHealth)
	router.Method("GET", "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/chat", s.handleChat)
		r.Get("/todos", s.handleTodos)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.orchestrator.Handle(r.Context(), agent.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		var valErr *agent.ValidationError
		var provErr *agent.ProviderError
		switch {
		case errors.As(err, &valErr):
			writeError(w, http.StatusBadRequest, valErr.Msg)
		case errors.As(err, &provErr):
			slog.Error("Chat turn failed at the model provider", "error", err)
			writeError(w, http.StatusBadGateway, "the language model is unavailable")
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to write.
		default:
			slog.Error("Chat turn failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	for _, inv := range resp.ToolInvocations {
		capability := inv.CapabilityUsed
		if capability == "" {
			capability = "error"
		}
		s.metrics.toolInvocations.WithLabelValues(inv.Tool, capability).Inc()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.ListTodos(r.Context())
	if err != nil {
		slog.Error("Failed to list todos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": todos})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
