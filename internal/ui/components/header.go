// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// Header is the single-row title bar.
type Header struct {
	Title string
	User  string
	Width int
	theme *styles.Theme
}

// NewHeader creates a header titled "Jarvis".
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Title: "Jarvis", theme: theme}
}

// View renders the title on the left and the user on the right.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	left := h.theme.HeaderTitle.Render("◆ " + h.Title)
	right := ""
	if h.User != "" {
		right = h.theme.Timestamp.Render(h.User)
	}
	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(width).Render(left + spaces(gap) + right)
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}
