// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar shows the delivery mode and the key hints.
type StatusBar struct {
	Width     int
	Streaming bool
	Busy      bool
	Focus     string // "input", "timeline", "sidebar" or "correction"
	theme     *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, Focus: "input"}
}

// View picks a layout by width.
func (s *StatusBar) View() string {
	mode := s.theme.StatusKey.Render("normal")
	if s.Streaming {
		mode = s.theme.Streaming.Render("⚡ streaming")
	}

	var hints []string
	switch {
	case s.Width < 60:
		hints = s.narrowHints()
	default:
		hints = s.hints()
	}

	left := mode
	if s.Busy {
		left += " " + s.theme.Timestamp.Render("aguardando…")
	}
	right := s.theme.StatusBar.UnsetBackground().UnsetPadding().Render(strings.Join(hints, "  "))

	gap := s.Width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		// Drop the hints rather than wrap.
		right, gap = "", 1
	}
	return s.theme.StatusBar.Width(s.Width).Render(left + spaces(gap) + right)
}

func (s *StatusBar) key(k, label string) string {
	return s.theme.StatusKey.Render(k) + " " + label
}

func (s *StatusBar) hints() []string {
	switch s.Focus {
	case "timeline":
		return []string{s.key("+/-", "avaliar"), s.key("s", "salvar"), s.key("esc", "voltar")}
	case "sidebar":
		return []string{s.key("enter", "usar"), s.key("del", "remover"), s.key("esc", "voltar")}
	case "correction":
		return []string{s.key("enter", "enviar"), s.key("esc", "fechar")}
	default:
		return []string{
			s.key("ctrl+s", "streaming"),
			s.key("↑", "mensagens"),
			s.key("ctrl+b", "atalhos"),
			s.key("ctrl+l", "limpar"),
			s.key("ctrl+c", "sair"),
		}
	}
}

func (s *StatusBar) narrowHints() []string {
	return []string{s.key("ctrl+c", "sair")}
}
