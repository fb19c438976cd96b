// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is something observers of a session may want to redraw for.
// Events are hints: observers read current state from the session.
type Event interface {
	sessionEvent()
}

// ExchangeChanged is sent when an exchange's text or state changes.
type ExchangeChanged struct {
	Exchange timeline.Exchange
}

// ExchangeFinished is sent once an exchange reaches complete or failed.
type ExchangeFinished struct {
	Exchange timeline.Exchange
}

// FeedbackChanged is sent after a rating transition.
type FeedbackChanged struct {
	Change feedback.Change
}

// ShortcutsChanged carries the new shortcut list.
type ShortcutsChanged struct {
	Items []shortcuts.Shortcut
}

// InputChanged reports whether the send affordance is enabled.
type InputChanged struct {
	Enabled bool
}

// StreamingChanged reports the response mode for the next send.
type StreamingChanged struct {
	Enabled bool
}

// Cleared is sent when the conversation was reset.
type Cleared struct{}

// ToastLevel is the severity of a toast.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)

// Toast is a transient, non-blocking notification.
type Toast struct {
	Level   ToastLevel
	Message string
}

func (ExchangeChanged) sessionEvent()  {}
func (ExchangeFinished) sessionEvent() {}
func (FeedbackChanged) sessionEvent()  {}
func (ShortcutsChanged) sessionEvent() {}
func (InputChanged) sessionEvent()     {}
func (StreamingChanged) sessionEvent() {}
func (Cleared) sessionEvent()          {}
func (Toast) sessionEvent()            {}
