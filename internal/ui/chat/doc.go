// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view.
//
// The Model is a thin Bubble Tea front end over a session.Session. Key
// presses become typed session commands that run inside tea.Cmd goroutines;
// their results come back as dispatchResultMsg. Everything the session does
// on its own (revealing text, feedback transitions, shortcut changes, toasts)
// arrives through the session's event channel, which the model keeps one
// pending read on at all times.
//
// # Focus Areas
//
//   - input: the message field, plus suggestion cards while the
//     conversation is empty
//   - timeline: exchange selection for rating and saving shortcuts
//   - sidebar: saved shortcuts
//   - correction: the text box opened by a negative rating
//
// Reveal events arrive every few milliseconds, so timeline redraws are
// coalesced to one per frame and skipped when the rendered content is
// unchanged (see ViewportOptimizer).
package chat
