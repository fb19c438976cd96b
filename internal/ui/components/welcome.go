// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

// Welcome is shown while the conversation is empty. It offers suggestion
// cards: picking one either sends its text or puts it in the input.
type Welcome struct {
	theme       *styles.Theme
	suggestions []config.Suggestion
	selected    int // -1 when no card is highlighted
	user        string
	width       int
}

// NewWelcome creates the welcome screen.
func NewWelcome(theme *styles.Theme, suggestions []config.Suggestion) Welcome {
	return Welcome{theme: theme, suggestions: suggestions, selected: -1}
}

// SetSuggestions replaces the cards, e.g. after a config reload.
func (w *Welcome) SetSuggestions(s []config.Suggestion) {
	w.suggestions = s
	if w.selected >= len(s) {
		w.selected = len(s) - 1
	}
}

// SetUser sets the name shown in the greeting.
func (w *Welcome) SetUser(name string) {
	w.user = name
}

// SetWidth sets the available width.
func (w *Welcome) SetWidth(width int) {
	w.width = width
}

// Move highlights the next (delta > 0) or previous card, wrapping around.
func (w *Welcome) Move(delta int) {
	n := len(w.suggestions)
	if n == 0 {
		return
	}
	if w.selected < 0 {
		if delta < 0 {
			w.selected = n - 1
		} else {
			w.selected = 0
		}
		return
	}
	w.selected = ((w.selected+delta)%n + n) % n
}

// Deselect removes the highlight.
func (w *Welcome) Deselect() {
	w.selected = -1
}

// Selected returns the highlighted suggestion.
func (w Welcome) Selected() (config.Suggestion, bool) {
	if w.selected < 0 || w.selected >= len(w.suggestions) {
		return config.Suggestion{}, false
	}
	return w.suggestions[w.selected], true
}

// View renders the greeting and the cards. Cards are laid out in a row when
// they fit and stacked otherwise.
func (w Welcome) View() string {
	greeting := "Olá! Como posso ajudar?"
	if w.user != "" {
		greeting = "Olá, " + w.user + "! Como posso ajudar?"
	}
	parts := []string{w.theme.WelcomeTitle.Render(greeting)}

	if len(w.suggestions) > 0 {
		cards := make([]string, 0, len(w.suggestions))
		for i, s := range w.suggestions {
			style := w.theme.Card
			if i == w.selected {
				style = w.theme.CardSelected
			}
			body := w.theme.Bold.Render(s.Title) + "\n" + w.theme.Timestamp.Render(strings.TrimSpace(s.Text))
			cards = append(cards, style.Render(body))
		}

		row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
		if w.width > 0 && lipgloss.Width(row) > w.width {
			row = lipgloss.JoinVertical(lipgloss.Left, cards...)
		}
		parts = append(parts, row)
		parts = append(parts, w.theme.Timestamp.Render("tab escolhe uma sugestão, enter confirma"))
	}

	view := lipgloss.JoinVertical(lipgloss.Center, parts...)
	if w.width > 0 {
		view = lipgloss.PlaceHorizontal(w.width, lipgloss.Center, view)
	}
	return view
}
