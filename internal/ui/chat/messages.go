// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/jarvis-tui/internal/session"
)

// sessionEventMsg carries one session event into the update loop.
type sessionEventMsg struct {
	Event session.Event
}

// eventsClosedMsg is sent once the session's event channel is closed.
type eventsClosedMsg struct{}

// dispatchResultMsg is the outcome of a command run off the update loop.
type dispatchResultMsg struct {
	Command session.Command
	Result  session.Result
	Err     error
}

// openResultMsg is the outcome of the initial login and shortcut load.
type openResultMsg struct {
	Err error
}

// frameMsg redraws the timeline after a burst of text updates.
type frameMsg struct {
	Time time.Time
}
