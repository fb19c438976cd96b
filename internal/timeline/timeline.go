// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package timeline holds the ordered record of exchanges in a chat session.
//
// An Exchange is one user message paired with one assistant response. Its
// response text may only grow while the exchange is streaming; once complete
// or failed it is frozen. Exchanges are never removed individually; Reset
// starts a new conversation.
package timeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TYPES
// =============================================================================

// State is the lifecycle position of an exchange.
type State int

const (
	StatePending State = iota
	StateStreaming
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Exchange is a user message and its assistant response.
type Exchange struct {
	ID           string
	UserText     string
	ResponseText string
	Timestamp    string
	State        State
	Streamed     bool

	// Notice is an error message shown after any partial response.
	Notice string

	// Interrupted is set when rendering was cut short by a newer message.
	Interrupted bool

	CreatedAt time.Time
}

// Errors returned by timeline operations.
var (
	ErrUnknownExchange = errors.New("unknown exchange")
	ErrBadTransition   = errors.New("invalid exchange state transition")
)

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is an append-only list of exchanges. It is safe for concurrent use.
type Timeline struct {
	mu       sync.RWMutex
	order    []string
	byID     map[string]*Exchange
	onChange func(Exchange)
	now      func() time.Time
}

// New creates an empty timeline. onChange, if non-nil, receives a copy of an
// exchange after every mutation. It is called without the lock held.
func New(onChange func(Exchange)) *Timeline {
	return &Timeline{
		byID:     make(map[string]*Exchange),
		onChange: onChange,
		now:      time.Now,
	}
}

// Append records a new pending exchange for userText and returns its copy.
func (t *Timeline) Append(userText string) Exchange {
	t.mu.Lock()
	ex := &Exchange{
		ID:        uuid.NewString(),
		UserText:  userText,
		State:     StatePending,
		CreatedAt: t.now(),
	}
	t.order = append(t.order, ex.ID)
	t.byID[ex.ID] = ex
	snapshot := *ex
	t.mu.Unlock()

	t.notify(snapshot)
	return snapshot
}

// BeginStreaming moves a pending exchange to streaming.
func (t *Timeline) BeginStreaming(id string, streamed bool) error {
	return t.update(id, func(ex *Exchange) error {
		if ex.State != StatePending {
			return fmt.Errorf("%w: %s -> streaming", ErrBadTransition, ex.State)
		}
		ex.State = StateStreaming
		ex.Streamed = streamed
		return nil
	})
}

// AppendText adds revealed text to a streaming exchange.
func (t *Timeline) AppendText(id, text string) error {
	if text == "" {
		return nil
	}
	return t.update(id, func(ex *Exchange) error {
		if ex.State != StateStreaming {
			return fmt.Errorf("%w: append while %s", ErrBadTransition, ex.State)
		}
		ex.ResponseText += text
		return nil
	})
}

// SetTimestamp sets the display time of an exchange that is not yet terminal.
func (t *Timeline) SetTimestamp(id, ts string) error {
	return t.update(id, func(ex *Exchange) error {
		if ex.State.Terminal() {
			return fmt.Errorf("%w: timestamp on %s exchange", ErrBadTransition, ex.State)
		}
		ex.Timestamp = ts
		return nil
	})
}

// Complete freezes an exchange as successfully answered. A pending exchange
// may complete directly, which happens for empty responses.
func (t *Timeline) Complete(id string, interrupted bool) error {
	return t.update(id, func(ex *Exchange) error {
		if ex.State.Terminal() {
			return fmt.Errorf("%w: complete on %s exchange", ErrBadTransition, ex.State)
		}
		ex.State = StateComplete
		ex.Interrupted = interrupted
		return nil
	})
}

// Fail freezes an exchange as failed. Text revealed so far is kept and
// notice is shown after it.
func (t *Timeline) Fail(id, notice string) error {
	return t.update(id, func(ex *Exchange) error {
		if ex.State.Terminal() {
			return fmt.Errorf("%w: fail on %s exchange", ErrBadTransition, ex.State)
		}
		ex.State = StateFailed
		ex.Notice = notice
		return nil
	})
}

// Get returns a copy of the exchange with the given id.
func (t *Timeline) Get(id string) (Exchange, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ex, ok := t.byID[id]
	if !ok {
		return Exchange{}, false
	}
	return *ex, true
}

// Entries returns copies of all exchanges in order.
func (t *Timeline) Entries() []Exchange {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Exchange, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.byID[id])
	}
	return out
}

// Last returns the most recent exchange.
func (t *Timeline) Last() (Exchange, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.order) == 0 {
		return Exchange{}, false
	}
	return *t.byID[t.order[len(t.order)-1]], true
}

// Len returns the number of exchanges.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Reset discards every exchange.
func (t *Timeline) Reset() {
	t.mu.Lock()
	t.order = nil
	t.byID = make(map[string]*Exchange)
	t.mu.Unlock()
}

// Writer returns a function that appends revealed text to exchange id.
// Errors are dropped: text arriving after the exchange froze is discarded.
func (t *Timeline) Writer(id string) func(string) {
	return func(s string) {
		_ = t.AppendText(id, s)
	}
}

func (t *Timeline) update(id string, fn func(*Exchange) error) error {
	t.mu.Lock()
	ex, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownExchange, id)
	}
	if err := fn(ex); err != nil {
		t.mu.Unlock()
		return err
	}
	snapshot := *ex
	t.mu.Unlock()

	t.notify(snapshot)
	return nil
}

func (t *Timeline) notify(ex Exchange) {
	if t.onChange != nil {
		t.onChange(ex)
	}
}
