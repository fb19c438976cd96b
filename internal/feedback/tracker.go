// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// Submitter delivers ratings to the backend.
type Submitter interface {
	SubmitFeedback(ctx context.Context, fb transport.Feedback) error
}

// Tracker errors.
var (
	ErrNotAttached     = errors.New("no feedback controls for exchange")
	ErrAlreadyAttached = errors.New("feedback controls already attached")
	ErrCorrectionOpen  = errors.New("another correction is open")
)

// Change is reported to observers after every state transition.
type Change struct {
	ExchangeID string
	State      State
	Controls   Controls
}

// Result is the outcome of a dispatched command.
type Result struct {
	State  State
	Record *Record
}

// Tracker owns the feedback machines of every completed exchange in a
// session. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	machines map[string]*Machine
	awaiting string // exchange whose correction surface is open

	submitter Submitter
	log       zerolog.Logger
	onChange  func(Change)
}

// NewTracker creates a Tracker. onChange may be nil.
func NewTracker(submitter Submitter, log zerolog.Logger, onChange func(Change)) *Tracker {
	return &Tracker{
		machines:  make(map[string]*Machine),
		submitter: submitter,
		log:       log.With().Str("component", "feedback").Logger(),
		onChange:  onChange,
	}
}

// Attach enables the feedback controls of a completed exchange.
func (t *Tracker) Attach(exchangeID, userQuery, botResponse string) error {
	t.mu.Lock()
	if _, ok := t.machines[exchangeID]; ok {
		t.mu.Unlock()
		return ErrAlreadyAttached
	}
	m := NewMachine(exchangeID, userQuery, botResponse)
	t.machines[exchangeID] = m
	change := Change{ExchangeID: exchangeID, State: m.State(), Controls: m.Controls()}
	t.mu.Unlock()

	t.notify(change)
	return nil
}

// Dispatch applies cmd to an exchange's machine without submitting anything.
func (t *Tracker) Dispatch(exchangeID string, cmd Command) (Result, error) {
	t.mu.Lock()
	m, ok := t.machines[exchangeID]
	if !ok {
		t.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrNotAttached, exchangeID)
	}
	if _, isDislike := cmd.(Dislike); isDislike && t.awaiting != "" && t.awaiting != exchangeID {
		t.mu.Unlock()
		return Result{State: m.State()}, ErrCorrectionOpen
	}

	rec, err := m.Apply(cmd)
	if err != nil {
		state := m.State()
		t.mu.Unlock()
		return Result{State: state}, err
	}

	switch m.State() {
	case StateAwaitingCorrection:
		t.awaiting = exchangeID
	default:
		if t.awaiting == exchangeID {
			t.awaiting = ""
		}
	}
	change := Change{ExchangeID: exchangeID, State: m.State(), Controls: m.Controls()}
	t.mu.Unlock()

	t.notify(change)
	return Result{State: change.State, Record: rec}, nil
}

// Handle dispatches cmd and submits the resulting record, if any. Submission
// failures are logged and returned but the rating stays final.
func (t *Tracker) Handle(ctx context.Context, exchangeID string, cmd Command) (Result, error) {
	res, err := t.Dispatch(exchangeID, cmd)
	if err != nil || res.Record == nil {
		return res, err
	}
	return res, t.Submit(ctx, *res.Record)
}

// Submit sends a record to the backend once. It is never retried.
func (t *Tracker) Submit(ctx context.Context, rec Record) error {
	err := t.submitter.SubmitFeedback(ctx, transport.Feedback{
		UserQuery:   rec.UserQuery,
		BotResponse: rec.BotResponse,
		Rating:      rec.Rating,
		Correction:  rec.Correction,
	})
	ev := t.log.Info()
	if err != nil {
		ev = t.log.Warn().Err(err)
	}
	ev.Str("exchange", rec.ExchangeID).
		Int("rating", rec.Rating).
		Bool("correction", rec.Correction != nil).
		Msg("feedback submitted")
	if err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	return nil
}

// State returns the rating state of an exchange.
func (t *Tracker) State(exchangeID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.machines[exchangeID]
	if !ok {
		return StateUnrated, false
	}
	return m.State(), true
}

// Controls returns the control state of an exchange. ok is false when the
// exchange has no feedback controls.
func (t *Tracker) Controls(exchangeID string) (Controls, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.machines[exchangeID]
	if !ok {
		return Controls{}, false
	}
	return m.Controls(), true
}

// Awaiting returns the exchange whose correction surface is open.
func (t *Tracker) Awaiting() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.awaiting, t.awaiting != ""
}

// Reset forgets every machine.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.machines = make(map[string]*Machine)
	t.awaiting = ""
	t.mu.Unlock()
}

func (t *Tracker) notify(c Change) {
	if t.onChange != nil {
		t.onChange(c)
	}
}
