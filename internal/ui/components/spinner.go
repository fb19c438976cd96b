// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// =============================================================================
// TYPING INDICATOR
// =============================================================================

// Spinner is the typing indicator shown while a request is pending.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	active    bool
}

// NewSpinner creates an inactive typing indicator.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	return Spinner{spinner: s, message: "Jarvis está digitando"}
}

// Start activates the indicator.
func (s *Spinner) Start() tea.Cmd {
	s.active = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop hides the indicator.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the indicator is shown.
func (s Spinner) Active() bool {
	return s.active
}

// Update advances the animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the indicator with the elapsed time.
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	text := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(s.message)
	dots := lipgloss.NewStyle().Foreground(styles.Purple).Render(s.spinner.View())
	timer := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(" (" + formatElapsed(time.Since(s.startTime)) + ")")
	return text + dots + timer
}

func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return strconv.Itoa(seconds) + "s"
	}
	return strconv.Itoa(seconds/60) + "m " + strconv.Itoa(seconds%60) + "s"
}
