// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render reveals assistant responses incrementally.
//
// Responses may contain inline markup such as "<br>" or "<b>...</b>". The
// Lexer splits text into units: single characters, or whole tags, so a
// half-written tag is never shown. An unterminated '<' is shown literally.
//
// A Renderer starts one Job per response. A paced job reveals one unit per
// interval (15ms by default) no matter how fast text arrives; a pass-through
// job reveals everything complete as soon as it arrives. Jobs call their
// completion callback exactly once, and a canceled job keeps whatever it had
// already revealed.
//
// The Styler maps markup onto lipgloss styles for terminal display.
package render
