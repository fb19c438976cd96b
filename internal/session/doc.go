// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one chat conversation together.
//
// A Session owns the message timeline, the response renderer, the feedback
// tracker and the shortcut registry for a single backend. User gestures are
// typed commands passed to Dispatch; state changes are published on the
// Events channel. Close stops everything the session started.
//
// # Usage
//
//	client := session.NewClient(cfg, log)
//	s := session.New(client, session.OptionsFromConfig(cfg, log))
//	defer s.Close()
//
//	if err := s.Open(ctx); err != nil {
//	    return err
//	}
//	res, err := s.Dispatch(ctx, session.Send{Text: "oi"})
//
// Events are hints for redrawing. The channel never blocks the session;
// when it is full, events are dropped and observers should re-read state
// from Timeline, Feedback and Shortcuts.
package session
