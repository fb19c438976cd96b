// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// =============================================================================
// SHORTCUTS SIDEBAR
// =============================================================================

// Sidebar lists saved shortcuts. The cursor is only drawn while focused.
type Sidebar struct {
	theme   *styles.Theme
	items   []shortcuts.Shortcut
	cursor  int
	focused bool
	width   int
	height  int
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) Sidebar {
	return Sidebar{theme: theme, width: 28}
}

// SetItems replaces the list, keeping the cursor in range.
func (s *Sidebar) SetItems(items []shortcuts.Shortcut) {
	s.items = items
	if s.cursor >= len(items) {
		s.cursor = len(items) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// Items returns the listed shortcuts.
func (s Sidebar) Items() []shortcuts.Shortcut {
	return s.items
}

// SetSize sets the outer dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Width returns the outer width.
func (s Sidebar) Width() int {
	return s.width
}

// Focus gives the sidebar keyboard focus.
func (s *Sidebar) Focus() { s.focused = true }

// Blur removes keyboard focus.
func (s *Sidebar) Blur() { s.focused = false }

// Focused reports whether the sidebar has focus.
func (s Sidebar) Focused() bool { return s.focused }

// Move moves the cursor by delta, clamped to the list.
func (s *Sidebar) Move(delta int) {
	if len(s.items) == 0 {
		return
	}
	s.cursor += delta
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.cursor >= len(s.items) {
		s.cursor = len(s.items) - 1
	}
}

// Selected returns the shortcut under the cursor.
func (s Sidebar) Selected() (shortcuts.Shortcut, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return shortcuts.Shortcut{}, false
	}
	return s.items[s.cursor], true
}

// View renders the list. Long texts are cut to one row.
func (s Sidebar) View() string {
	inner := s.width - 4
	if inner < 8 {
		inner = 8
	}

	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Atalhos"))
	b.WriteString("\n")

	if len(s.items) == 0 {
		b.WriteString(s.theme.Timestamp.Render("nenhum atalho salvo"))
	}

	rows := len(s.items)
	start := 0
	if s.height > 3 && rows > s.height-3 {
		visible := s.height - 3
		start = s.cursor - visible + 1
		if start < 0 {
			start = 0
		}
		rows = start + visible
	}

	for i := start; i < rows && i < len(s.items); i++ {
		label := strconv.Itoa(i+1) + ". " + util.SingleLine(s.items[i].Text)
		label = util.TruncateWidth(label, inner)
		style := s.theme.SidebarItem
		if s.focused && i == s.cursor {
			style = s.theme.SidebarSelected
		}
		b.WriteString(style.Render(label))
		if i < len(s.items)-1 {
			b.WriteString("\n")
		}
	}

	if s.focused {
		b.WriteString("\n\n")
		b.WriteString(s.theme.Timestamp.Render("enter usa · del remove · esc volta"))
	}

	style := s.theme.Sidebar.Width(s.width - 1)
	if s.height > 0 {
		style = style.Height(s.height)
	}
	return style.Render(b.String())
}
