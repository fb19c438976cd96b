// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/render"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageOptions is the per-exchange state the timeline itself does not hold.
type MessageOptions struct {
	Width         int
	ShowTimestamp bool
	Selected      bool
	Rendering     bool

	// HasControls is set once the exchange has a feedback tracker.
	HasControls bool
	Controls    feedback.Controls

	// CanSave reports whether the user message may still become a shortcut.
	CanSave bool
}

// MessageRenderer draws exchanges as a pair of bubbles.
type MessageRenderer struct {
	theme  *styles.Theme
	styler render.Styler
}

// NewMessageRenderer creates a renderer whose markup styles come from theme.
func NewMessageRenderer(theme *styles.Theme) MessageRenderer {
	return MessageRenderer{
		theme: theme,
		styler: render.Styler{
			Bold:   theme.Bold,
			Italic: theme.Italic,
			Code:   theme.Code,
			Link:   theme.Link,
		},
	}
}

// Styler returns the markup styler, for callers that render outside bubbles.
func (r MessageRenderer) Styler() render.Styler {
	return r.styler
}

// Render draws one exchange.
func (r MessageRenderer) Render(ex timeline.Exchange, o MessageOptions) string {
	if o.Width <= 0 {
		o.Width = 80
	}
	parts := []string{r.renderUser(ex, o), r.renderAssistant(ex, o)}
	if line := r.renderStatusLine(ex, o); line != "" {
		parts = append(parts, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// ==========================================================================
// BUBBLES
// ==========================================================================

func (r MessageRenderer) renderUser(ex timeline.Exchange, o MessageOptions) string {
	bubble := r.bubble(r.theme.UserBubble, ex.UserText, o)

	header := r.theme.Timestamp.Render("você")
	if o.ShowTimestamp && !ex.CreatedAt.IsZero() {
		header += " " + r.theme.Timestamp.Render(ex.CreatedAt.Format("15:04"))
	}
	block := lipgloss.JoinVertical(lipgloss.Right, header, bubble)
	return lipgloss.PlaceHorizontal(o.Width, lipgloss.Right, block)
}

func (r MessageRenderer) renderAssistant(ex timeline.Exchange, o MessageOptions) string {
	text := r.styler.Render(ex.ResponseText)
	if o.Rendering {
		text += r.theme.Streaming.Render("▌")
	}
	if strings.TrimSpace(render.Plain(ex.ResponseText)) == "" && !o.Rendering {
		text = "…"
	}

	style := r.theme.AssistantBubble
	if ex.State == timeline.StateFailed {
		style = r.theme.FailedBubble
	}

	header := r.theme.Timestamp.Render("jarvis")
	if o.ShowTimestamp && ex.Timestamp != "" {
		header += " " + r.theme.Timestamp.Render(ex.Timestamp)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, r.bubbleStyled(style, text, o))
}

func (r MessageRenderer) bubble(style lipgloss.Style, text string, o MessageOptions) string {
	if text == "" {
		text = "…"
	}
	return r.bubbleStyled(style, text, o)
}

// bubbleStyled wraps already styled text. lipgloss measures ANSI sequences
// correctly, so the bubble hugs short replies and wraps long ones.
func (r MessageRenderer) bubbleStyled(style lipgloss.Style, text string, o MessageOptions) string {
	inner := o.Width - 12
	if inner < 20 {
		inner = 20
	}
	w := lipgloss.Width(text)
	if w > inner {
		w = inner
	}
	if o.Selected {
		style = style.BorderForeground(r.theme.SelectedBubble.GetBorderTopForeground())
	}
	return style.Width(w + 2).Render(text)
}

// ==========================================================================
// STATUS LINE
// ==========================================================================

// renderStatusLine shows the error notice, the interrupted marker and the
// feedback controls under the assistant bubble.
func (r MessageRenderer) renderStatusLine(ex timeline.Exchange, o MessageOptions) string {
	var lines []string
	if ex.Notice != "" {
		lines = append(lines, r.theme.Notice.Render(styles.StatusIndicators.Error+" "+ex.Notice))
	}
	if ex.Interrupted {
		lines = append(lines, r.theme.Interrupted.Render("(resposta interrompida)"))
	}
	if controls := r.renderControls(o); controls != "" {
		lines = append(lines, controls)
	}
	return strings.Join(lines, "\n")
}

func (r MessageRenderer) renderControls(o MessageOptions) string {
	var items []string
	if o.HasControls {
		c := o.Controls
		items = append(items,
			r.control("[+] útil", c.LikeEnabled, c.Selected == feedback.RatingPositive, r.theme.ControlLiked),
			r.control("[-] não útil", c.DislikeEnabled, c.Selected == feedback.RatingNegative, r.theme.ControlDisliked),
		)
	}
	if o.Selected {
		if o.CanSave {
			items = append(items, r.theme.Control.Render("[s] salvar atalho"))
		} else {
			items = append(items, r.theme.ControlDisabled.Render("atalho salvo"))
		}
	}
	return strings.Join(items, "")
}

func (r MessageRenderer) control(label string, enabled, chosen bool, chosenStyle lipgloss.Style) string {
	switch {
	case chosen:
		return chosenStyle.Render(label)
	case enabled:
		return r.theme.Control.Render(label)
	default:
		return r.theme.ControlDisabled.Render(label)
	}
}
