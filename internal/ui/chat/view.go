// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/ui/components"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

const (
	sidebarWidth     = 30
	correctionHeight = 3
	minViewport      = 3
)

// =============================================================================
// LAYOUT
// =============================================================================

// sidebarBeside reports whether the sidebar is drawn next to the timeline.
func (m *Model) sidebarBeside() bool {
	return m.showSidebar && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// layout sizes every piece from the window size and what is currently shown.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)

	m.header.Width = m.width
	m.status.Width = m.width
	m.status.Streaming = m.streaming
	m.status.Busy = !m.inputEnabled
	m.status.Focus = m.focus.String()
	m.help.Width = m.width

	m.input.Width = m.width - 6
	if m.input.Width < 10 {
		m.input.Width = 10
	}
	m.correction.SetWidth(m.width - 4)

	vpWidth := m.width
	if m.sidebarBeside() {
		vpWidth -= sidebarWidth
	}

	used := 1 + 1 + 3 // header, status bar, bordered input
	if m.spinner.Active() {
		used++
	}
	used += len(m.toasts.Toasts())
	if m.showHelp {
		used += lipgloss.Height(m.help.View(m.keys))
	}
	corrRows := 0
	if m.correctionFor != "" {
		corrRows = correctionHeight + 3 // title and border
	}
	used += corrRows

	vpHeight := m.height - used
	if vpHeight < minViewport {
		vpHeight = minViewport
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.sidebar.SetSize(sidebarWidth, vpHeight)
	m.welcome.SetWidth(vpWidth)

	m.correctionTop = 1 + vpHeight
	m.correctionRows = corrRows
}

// insideCorrection reports whether screen row y falls on the correction box.
func (m *Model) insideCorrection(y int) bool {
	return y >= m.correctionTop && y < m.correctionTop+m.correctionRows
}

// =============================================================================
// TIMELINE CONTENT
// =============================================================================

// refresh rebuilds the timeline content. The viewport follows new text only
// when it was already at the bottom, so scrolling back is not undone.
func (m *Model) refresh() {
	entries := m.sess.Timeline().Entries()
	width := m.viewport.Width - 1

	var content string
	m.offsets = m.offsets[:0]
	if len(entries) == 0 {
		content = "\n" + m.welcome.View()
	} else {
		blocks := make([]string, 0, len(entries))
		line := 0
		for i, ex := range entries {
			opts := components.MessageOptions{
				Width:         width,
				ShowTimestamp: m.showTimestamps,
				Selected:      m.focus == FocusTimeline && i == m.selected,
				Rendering:     !ex.State.Terminal(),
				CanSave:       m.sess.Shortcuts().CanPromote(ex.ID),
			}
			if c, ok := m.sess.Feedback().Controls(ex.ID); ok {
				opts.HasControls = true
				opts.Controls = c
			}
			block := m.renderer.Render(ex, opts)
			m.offsets = append(m.offsets, line)
			line += lipgloss.Height(block) + 1
			blocks = append(blocks, block)
		}
		content = strings.Join(blocks, "\n\n")
	}

	follow := m.viewport.AtBottom() || m.stickBottom
	if !m.optimizer.ShouldUpdate(content) {
		return
	}
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
		m.stickBottom = false
	}
}

// scrollToSelected brings the selected exchange into view.
func (m *Model) scrollToSelected() {
	m.refresh()
	if m.selected < 0 || m.selected >= len(m.offsets) {
		return
	}
	top := m.offsets[m.selected]
	if top < m.viewport.YOffset || top >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(top)
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	parts := []string{m.header.View()}

	body := m.viewport.View()
	switch {
	case m.focus == FocusSidebar && !m.sidebarBeside():
		narrow := m.sidebar
		narrow.SetSize(m.width, m.viewport.Height)
		body = narrow.View()
	case m.sidebarBeside():
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.sidebar.View())
	}
	parts = append(parts, body)

	if m.correctionFor != "" {
		title := m.theme.Notice.Render("Como a resposta deveria ser?") +
			m.theme.Timestamp.Render("  enter envia · esc fecha")
		box := m.theme.Correction.Width(m.width - 2).Render(title + "\n" + m.correction.View())
		parts = append(parts, box)
	}

	if stack := components.RenderToastStack(m.theme, m.toasts.Toasts(), m.width); stack != "" {
		parts = append(parts, stack)
	}

	if m.spinner.Active() {
		parts = append(parts, m.spinner.View())
	}

	inputStyle := m.theme.Input
	if !m.inputEnabled {
		inputStyle = m.theme.InputDisabled
	}
	parts = append(parts, inputStyle.Width(m.width-2).Render(m.input.View()))

	if m.showHelp {
		parts = append(parts, m.help.View(m.keys))
	}
	parts = append(parts, m.status.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
