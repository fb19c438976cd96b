// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feedback

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// STATES AND COMMANDS
// =============================================================================

// State is the rating position of one exchange.
type State int

const (
	StateUnrated State = iota
	StateAwaitingCorrection
	StateRatedPositive
	StateRatedNegative
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnrated:
		return "unrated"
	case StateAwaitingCorrection:
		return "awaiting-correction"
	case StateRatedPositive:
		return "rated-positive"
	case StateRatedNegative:
		return "rated-negative"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the exchange has been rated.
func (s State) Terminal() bool {
	return s == StateRatedPositive || s == StateRatedNegative
}

// Command is a user gesture on the feedback controls.
type Command interface {
	command()
}

// Like rates the response positively.
type Like struct{}

// Dislike rates the response negatively and opens the correction surface.
type Dislike struct{}

// SubmitCorrection sends the typed correction.
type SubmitCorrection struct {
	Text string
}

// CloseCorrection dismisses the correction surface with its close control.
type CloseCorrection struct{}

// ClickOutside dismisses the correction surface by clicking elsewhere.
type ClickOutside struct{}

func (Like) command()             {}
func (Dislike) command()          {}
func (SubmitCorrection) command() {}
func (CloseCorrection) command()  {}
func (ClickOutside) command()     {}

// Rating values sent to the backend.
const (
	RatingPositive = 1
	RatingNegative = -1
)

// Record is a rating ready to be submitted.
type Record struct {
	ExchangeID  string
	UserQuery   string
	BotResponse string
	Rating      int
	Correction  *string
}

// Controls describes how the feedback controls should be drawn.
type Controls struct {
	LikeEnabled    bool
	DislikeEnabled bool
	CorrectionOpen bool
	Selected       int // RatingPositive, RatingNegative or 0
}

// Errors returned when a command does not apply.
var (
	ErrAlreadyRated    = errors.New("exchange already rated")
	ErrNoCorrection    = errors.New("correction surface is not open")
	ErrAwaitingCorrect = errors.New("correction pending; submit or dismiss it first")
	ErrUnknownCommand  = errors.New("unknown feedback command")
)

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the rating state of a single exchange. It produces at most one
// Record over its lifetime. Machine is not safe for concurrent use; Tracker
// serializes access.
type Machine struct {
	exchangeID  string
	userQuery   string
	botResponse string
	state       State
}

// NewMachine creates an unrated machine for one exchange.
func NewMachine(exchangeID, userQuery, botResponse string) *Machine {
	return &Machine{
		exchangeID:  exchangeID,
		userQuery:   userQuery,
		botResponse: botResponse,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Apply runs cmd. When cmd ends the rating it returns the record to submit.
func (m *Machine) Apply(cmd Command) (*Record, error) {
	if m.state.Terminal() {
		return nil, ErrAlreadyRated
	}

	switch c := cmd.(type) {
	case Like:
		if m.state == StateAwaitingCorrection {
			return nil, ErrAwaitingCorrect
		}
		m.state = StateRatedPositive
		return m.record(RatingPositive, nil), nil

	case Dislike:
		if m.state == StateAwaitingCorrection {
			return nil, ErrAwaitingCorrect
		}
		m.state = StateAwaitingCorrection
		return nil, nil

	case SubmitCorrection:
		if m.state != StateAwaitingCorrection {
			return nil, ErrNoCorrection
		}
		text := strings.TrimSpace(c.Text)
		m.state = StateRatedNegative
		return m.record(RatingNegative, &text), nil

	case CloseCorrection, ClickOutside:
		if m.state != StateAwaitingCorrection {
			return nil, ErrNoCorrection
		}
		m.state = StateRatedNegative
		return m.record(RatingNegative, nil), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
}

// Controls returns the control state for rendering.
func (m *Machine) Controls() Controls {
	switch m.state {
	case StateUnrated:
		return Controls{LikeEnabled: true, DislikeEnabled: true}
	case StateAwaitingCorrection:
		return Controls{CorrectionOpen: true, Selected: RatingNegative}
	case StateRatedPositive:
		return Controls{Selected: RatingPositive}
	default:
		return Controls{Selected: RatingNegative}
	}
}

func (m *Machine) record(rating int, correction *string) *Record {
	return &Record{
		ExchangeID:  m.exchangeID,
		UserQuery:   m.userQuery,
		BotResponse: m.botResponse,
		Rating:      rating,
		Correction:  correction,
	}
}
