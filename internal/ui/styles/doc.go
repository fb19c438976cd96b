// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the jarvis TUI.
//
// All colors use Lip Gloss AdaptiveColor so they follow the terminal
// background. The "dark" and "light" themes force one side.
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	theme.SetSize(width, height)
//	fmt.Println(theme.UserBubble.Render("oi"))
package styles
