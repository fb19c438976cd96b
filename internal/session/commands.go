// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command is a user intent handled by Session.Dispatch.
type Command interface {
	sessionCommand()
}

// Send submits a message.
type Send struct {
	Text string
}

// Rate likes or dislikes a completed response.
type Rate struct {
	ExchangeID string
	Positive   bool
}

// CorrectionAction is how the correction surface was dismissed.
type CorrectionAction int

const (
	CorrectionSubmit CorrectionAction = iota
	CorrectionClose
	CorrectionClickOutside
)

// Correct resolves an open correction surface.
type Correct struct {
	ExchangeID string
	Action     CorrectionAction
	Text       string
}

// SaveShortcut promotes an exchange's user text to a shortcut.
type SaveShortcut struct {
	ExchangeID string
}

// DeleteShortcut removes a shortcut.
type DeleteShortcut struct {
	ID int64
}

// UseShortcut fetches a shortcut's text for the input field.
type UseShortcut struct {
	ID int64
}

// LoadShortcuts refreshes the shortcut list from the backend.
type LoadShortcuts struct{}

// ToggleStreaming flips between buffered and streamed responses.
type ToggleStreaming struct{}

// Clear starts a new conversation.
type Clear struct{}

// Login authenticates with the configured credentials.
type Login struct{}

func (Send) sessionCommand()            {}
func (Rate) sessionCommand()            {}
func (Correct) sessionCommand()         {}
func (SaveShortcut) sessionCommand()    {}
func (DeleteShortcut) sessionCommand()  {}
func (UseShortcut) sessionCommand()     {}
func (LoadShortcuts) sessionCommand()   {}
func (ToggleStreaming) sessionCommand() {}
func (Clear) sessionCommand()           {}
func (Login) sessionCommand()           {}

// Result is what a command produced.
type Result struct {
	// ExchangeID is the exchange a Send created.
	ExchangeID string

	// Input is text to place in the input field (UseShortcut).
	Input string

	// Streaming is the response mode after ToggleStreaming.
	Streaming bool

	// Feedback is the rating state after Rate or Correct.
	Feedback feedback.State

	// Shortcut is the entry created by SaveShortcut.
	Shortcut *shortcuts.Shortcut
}

func (a CorrectionAction) command(text string) feedback.Command {
	switch a {
	case CorrectionClose:
		return feedback.CloseCorrection{}
	case CorrectionClickOutside:
		return feedback.ClickOutside{}
	default:
		return feedback.SubmitCorrection{Text: text}
	}
}
