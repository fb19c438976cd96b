// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the view pieces of the chat screen.
//
// Components render state they are given and hold only presentation state
// (cursor positions, highlighted cards, visible toasts). Conversation state
// lives in the session; the chat model copies what it needs into these
// components before calling View.
//
//   - MessageRenderer draws an exchange as user and assistant bubbles, with
//     the error notice, the interrupted marker and the feedback controls.
//   - Welcome shows suggestion cards while the conversation is empty.
//   - Sidebar lists saved shortcuts.
//   - ToastManager and RenderToastStack show auto-dismissing notifications.
//   - Header, StatusBar and Spinner are the chrome around the timeline.
package components
