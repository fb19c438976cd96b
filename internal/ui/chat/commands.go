// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jarvis-tui/internal/session"
)

// frameInterval caps timeline redraws while text is being revealed.
const frameInterval = 33 * time.Millisecond

// waitForEvent blocks on the next session event.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return sessionEventMsg{Event: ev}
	}
}

// dispatchCmd runs cmd on the session outside the update loop.
func dispatchCmd(ctx context.Context, sess *session.Session, cmd session.Command) tea.Cmd {
	return func() tea.Msg {
		res, err := sess.Dispatch(ctx, cmd)
		return dispatchResultMsg{Command: cmd, Result: res, Err: err}
	}
}

// openCmd logs in and loads shortcuts.
func openCmd(ctx context.Context, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		return openResultMsg{Err: sess.Open(ctx)}
	}
}

// frameCmd schedules the next coalesced redraw.
func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{Time: t}
	})
}
