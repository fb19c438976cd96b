// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Styles shared by the line-oriented jarvis commands.

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/render"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// init configures lipgloss for piped output and NO_COLOR.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for the chat banner
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Purple)

	// UserStyle prefixes the user's own lines
	UserStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)

	// AssistantStyle prefixes the assistant's replies
	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Purple)

	// SuccessStyle is used for confirmations
	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)

	// WarningStyle is used for warnings and notices
	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber)

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().Foreground(styles.TextMuted)

	// InfoStyle is used for informational messages
	InfoStyle = lipgloss.NewStyle().Foreground(styles.Cyan)
)

// responseStyler styles inline markup in replies printed to the terminal.
func responseStyler() render.Styler {
	return render.Styler{
		Bold:   lipgloss.NewStyle().Bold(true),
		Italic: lipgloss.NewStyle().Italic(true),
		Code:   lipgloss.NewStyle().Foreground(styles.Amber),
		Link:   lipgloss.NewStyle().Underline(true).Foreground(styles.Cyan),
	}
}
