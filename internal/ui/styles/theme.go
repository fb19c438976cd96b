// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds every style used by the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	Streaming   lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	FailedBubble    lipgloss.Style
	SelectedBubble  lipgloss.Style
	Timestamp       lipgloss.Style
	Notice          lipgloss.Style
	Interrupted     lipgloss.Style

	// ==========================================================================
	// FEEDBACK CONTROLS
	// ==========================================================================

	Control         lipgloss.Style
	ControlDisabled lipgloss.Style
	ControlLiked    lipgloss.Style
	ControlDisliked lipgloss.Style
	Correction      lipgloss.Style

	// ==========================================================================
	// SIDEBAR, INPUT AND WELCOME
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style

	Input         lipgloss.Style
	InputDisabled lipgloss.Style

	WelcomeTitle lipgloss.Style
	Card         lipgloss.Style
	CardSelected lipgloss.Style

	// ==========================================================================
	// TOASTS
	// ==========================================================================

	ToastInfo    lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastWarning lipgloss.Style
	ToastError   lipgloss.Style

	// Inline markup
	Bold   lipgloss.Style
	Italic lipgloss.Style
	Code   lipgloss.Style
	Link   lipgloss.Style
}

// NewTheme builds a theme. name is "auto", "dark" or "light"; anything else
// is treated as "auto".
func NewTheme(name string) *Theme {
	colorProfile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()

	switch strings.ToLower(name) {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.Streaming = lipgloss.NewStyle().Bold(true).Foreground(Amber)

	bubble := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1)
	t.UserBubble = bubble.
		Foreground(UserBubbleFg).
		BorderForeground(UserBubbleBorder).
		MarginLeft(4)
	t.AssistantBubble = bubble.
		Foreground(AssistantBubbleFg).
		BorderForeground(AssistantBubbleBorder).
		MarginRight(4)
	t.FailedBubble = bubble.
		Foreground(FailedBubbleFg).
		BorderForeground(Rose).
		MarginRight(4)
	t.SelectedBubble = lipgloss.NewStyle().BorderForeground(Cyan)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Notice = lipgloss.NewStyle().Foreground(Rose).Italic(true)
	t.Interrupted = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Control = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.ControlDisabled = lipgloss.NewStyle().Foreground(TextMuted).Faint(true).Padding(0, 1)
	t.ControlLiked = lipgloss.NewStyle().Foreground(Emerald).Bold(true).Padding(0, 1)
	t.ControlDisliked = lipgloss.NewStyle().Foreground(Rose).Bold(true).Padding(0, 1)
	t.Correction = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SidebarSelected = lipgloss.NewStyle().Foreground(TextInverse).Background(Cyan)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)
	t.InputDisabled = t.Input.BorderForeground(Overlay)

	t.WelcomeTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1).
		Width(28)
	t.CardSelected = t.Card.BorderForeground(Cyan)

	toast := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	t.ToastInfo = toast.Foreground(TextInverse).Background(Cyan)
	t.ToastSuccess = toast.Foreground(TextInverse).Background(Emerald)
	t.ToastWarning = toast.Foreground(TextInverse).Background(Amber)
	t.ToastError = toast.Foreground(TextInverse).Background(Rose)

	t.Bold = lipgloss.NewStyle().Bold(true)
	t.Italic = lipgloss.NewStyle().Italic(true)
	t.Code = lipgloss.NewStyle().Foreground(Amber)
	t.Link = lipgloss.NewStyle().Underline(true).Foreground(Cyan)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, no sidebar
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
