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
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registration is one named provider and its current status.
type Registration struct {
	Name   string
	Status Status
	Client Client
}

// Registry holds every registered capability by name.
//
// Registrations never disappear mid-process. A failing provider is
// marked unavailable and stays that way until restart, so lookups are
// stable and callers can trust a name once seen.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Registration
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]*Registration),
	}
}

// Register adds a named provider. Duplicate names are an error.
func (r *Registry) Register(name string, client Client, status Status) error {
	if name == "" {
		return fmt.Errorf("capability name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return fmt.Errorf("capability %q is already registered", name)
	}

	r.items[name] = &Registration{
		Name:   name,
		Status: status,
		Client: client,
	}

	slog.Info("Registered capability", "name", name, "status", status)
	return nil
}

// Get returns the registration for a name, or false if never registered.
func (r *Registry) Get(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.items[name]
	if !ok {
		return nil, false
	}
	copy := *reg
	return &copy, true
}

// Available reports whether the named capability is registered and
// currently available.
func (r *Registry) Available(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.items[name]
	return ok && reg.Status == StatusAvailable
}

// MarkUnavailable flips a capability to unavailable. The transition is
// one-way: a capability never recovers within the process.
func (r *Registry) MarkUnavailable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.items[name]
	if !ok || reg.Status == StatusUnavailable {
		return
	}

	reg.Status = StatusUnavailable
	slog.Warn("Capability marked unavailable", "name", name)
}

// List returns all registrations sorted by name.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(r.items))
	for _, reg := range r.items {
		out = append(out, *reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close closes every registered client. Errors are logged, not returned,
// since Close runs during shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, reg := range r.items {
		if reg.Client == nil {
			continue
		}
		if err := reg.Client.Close(); err != nil {
			slog.Warn("Failed to close capability client", "name", name, "error", err)
		}
	}
}
