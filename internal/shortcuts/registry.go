// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shortcuts mirrors the user's saved prompts held by the backend.
//
// The list is only mutated through Load, Add and Delete. Add inserts an
// entry only once the server has assigned an id. Delete is optimistic: the
// entry disappears locally before the server answers and is not restored if
// the server call fails. A later Load brings the list back in line.
package shortcuts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// Shortcut is a saved prompt.
type Shortcut struct {
	ID   int64
	Text string
}

// Backend is the server side of the registry.
type Backend interface {
	ListShortcuts(ctx context.Context) ([]transport.Shortcut, error)
	AddShortcut(ctx context.Context, text string) (transport.Shortcut, error)
	DeleteShortcut(ctx context.Context, id int64) error
}

// Errors returned by the registry.
var (
	ErrEmptyText       = errors.New("shortcut text is empty")
	ErrAlreadyPromoted = errors.New("message already saved as a shortcut")
	ErrPromoteInFlight = errors.New("message is being saved")
	ErrUnknownShortcut = errors.New("unknown shortcut")
)

// originState tracks the "save" control of one message.
type originState int

const (
	originIdle originState = iota
	originInFlight
	originSaved
)

// Registry is the client-side list of shortcuts. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	items   []Shortcut
	origins map[string]originState

	backend  Backend
	log      zerolog.Logger
	onChange func([]Shortcut)
}

// New creates an empty registry. onChange receives a copy of the list after
// every local change and is called without the lock held.
func New(backend Backend, log zerolog.Logger, onChange func([]Shortcut)) *Registry {
	return &Registry{
		origins:  make(map[string]originState),
		backend:  backend,
		log:      log.With().Str("component", "shortcuts").Logger(),
		onChange: onChange,
	}
}

// Load replaces the whole list with the server's, in server order. On
// failure the current list is kept.
func (r *Registry) Load(ctx context.Context) error {
	list, err := r.backend.ListShortcuts(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("load shortcuts failed")
		return fmt.Errorf("load shortcuts: %w", err)
	}

	items := make([]Shortcut, 0, len(list))
	for _, s := range list {
		items = append(items, Shortcut{ID: s.ID, Text: s.Text})
	}

	r.mu.Lock()
	r.items = items
	snapshot := r.copyLocked()
	r.mu.Unlock()

	r.log.Debug().Int("count", len(items)).Msg("shortcuts loaded")
	r.notify(snapshot)
	return nil
}

// Add saves text. origin identifies the control that asked (typically an
// exchange id); it is disabled while the request runs and stays disabled
// once the save succeeds. An empty origin skips that bookkeeping.
func (r *Registry) Add(ctx context.Context, text, origin string) (Shortcut, error) {
	if strings.TrimSpace(text) == "" {
		return Shortcut{}, ErrEmptyText
	}

	if origin != "" {
		r.mu.Lock()
		switch r.origins[origin] {
		case originSaved:
			r.mu.Unlock()
			return Shortcut{}, ErrAlreadyPromoted
		case originInFlight:
			r.mu.Unlock()
			return Shortcut{}, ErrPromoteInFlight
		}
		r.origins[origin] = originInFlight
		r.mu.Unlock()
	}

	saved, err := r.backend.AddShortcut(ctx, text)
	if err != nil {
		if origin != "" {
			r.mu.Lock()
			delete(r.origins, origin)
			r.mu.Unlock()
		}
		r.log.Warn().Err(err).Msg("add shortcut failed")
		return Shortcut{}, fmt.Errorf("add shortcut: %w", err)
	}

	s := Shortcut{ID: saved.ID, Text: saved.Text}
	r.mu.Lock()
	if origin != "" {
		r.origins[origin] = originSaved
	}
	r.items = append(r.items, s)
	snapshot := r.copyLocked()
	r.mu.Unlock()

	r.log.Info().Int64("id", s.ID).Msg("shortcut added")
	r.notify(snapshot)
	return s, nil
}

// Delete removes a shortcut locally at once, then asks the server. A server
// failure is logged and returned; the local removal stands. An id that is
// not in the list is rejected without contacting the server.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownShortcut, id)
	}
	r.items = slices.Delete(r.items, idx, idx+1)
	snapshot := r.copyLocked()
	r.mu.Unlock()

	r.notify(snapshot)

	if err := r.backend.DeleteShortcut(ctx, id); err != nil {
		r.log.Warn().Err(err).Int64("id", id).Msg("delete shortcut failed on server; local list not restored")
		return fmt.Errorf("delete shortcut %d: %w", id, err)
	}
	r.log.Info().Int64("id", id).Msg("shortcut deleted")
	return nil
}

// Use returns the text of a shortcut for the input field. It never sends.
func (r *Registry) Use(id int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(id); idx >= 0 {
		return r.items[idx].Text, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownShortcut, id)
}

// CanPromote reports whether the save control of origin is enabled.
func (r *Registry) CanPromote(origin string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.origins[origin] == originIdle
}

// Items returns a copy of the list.
func (r *Registry) Items() []Shortcut {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyLocked()
}

// ResetOrigins re-enables every save control, used when the conversation
// is cleared.
func (r *Registry) ResetOrigins() {
	r.mu.Lock()
	r.origins = make(map[string]originState)
	r.mu.Unlock()
}

func (r *Registry) indexLocked(id int64) int {
	for i, s := range r.items {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) copyLocked() []Shortcut {
	out := make([]Shortcut, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Registry) notify(items []Shortcut) {
	if r.onChange != nil {
		r.onChange(items)
	}
}
