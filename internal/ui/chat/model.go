// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/session"
	"github.com/jeranaias/jarvis-tui/internal/ui/components"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

// Focus is the area that receives key presses.
type Focus int

const (
	FocusInput Focus = iota
	FocusTimeline
	FocusSidebar
	FocusCorrection
)

// String returns the name used by the status bar.
func (f Focus) String() string {
	switch f {
	case FocusTimeline:
		return "timeline"
	case FocusSidebar:
		return "sidebar"
	case FocusCorrection:
		return "correction"
	default:
		return "input"
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat screen.
type Options struct {
	Theme          *styles.Theme
	Suggestions    []config.Suggestion
	ShowTimestamps bool
	User           string
	Logger         zerolog.Logger

	// Open runs session.Open on start. Tests that drive the session
	// themselves leave it off.
	Open bool
}

// Model is the Bubble Tea model of the chat screen. All conversation state
// lives in the session; the model only keeps focus, selection and layout.
type Model struct {
	sess *session.Session
	ctx  context.Context
	log  zerolog.Logger

	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	renderer components.MessageRenderer

	input      textinput.Model
	correction textarea.Model
	viewport   viewport.Model
	spinner    components.Spinner
	toasts     *components.ToastManager
	welcome    components.Welcome
	sidebar    components.Sidebar
	header     *components.Header
	status     *components.StatusBar
	optimizer  *ViewportOptimizer

	focus          Focus
	selected       int    // index into the timeline, -1 for none
	correctionFor  string // exchange whose correction surface is open
	inputEnabled   bool
	streaming      bool
	showSidebar    bool
	showHelp       bool
	showTimestamps bool
	open           bool

	frameScheduled bool
	toastsTicking  bool
	stickBottom    bool

	offsets        []int // first line of each exchange in the viewport
	correctionTop  int
	correctionRows int

	width  int
	height int
}

// New creates the chat screen for sess. ctx bounds every dispatched command.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}

	in := textinput.New()
	in.Placeholder = "Digite sua mensagem…"
	in.Prompt = "› "
	in.CharLimit = 4000
	in.Focus()

	ta := textarea.New()
	ta.Placeholder = "O que deveria ter sido respondido?"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	welcome := components.NewWelcome(theme, opts.Suggestions)
	welcome.SetUser(opts.User)

	header := components.NewHeader(theme)
	header.User = opts.User

	return Model{
		sess:           sess,
		ctx:            ctx,
		log:            opts.Logger,
		theme:          theme,
		keys:           DefaultKeyMap(),
		help:           help.New(),
		renderer:       components.NewMessageRenderer(theme),
		input:          in,
		correction:     ta,
		viewport:       viewport.New(80, 20),
		spinner:        components.NewSpinner(),
		toasts:         components.NewToastManager(nil),
		welcome:        welcome,
		sidebar:        components.NewSidebar(theme),
		header:         header,
		status:         components.NewStatusBar(theme),
		optimizer:      NewViewportOptimizer(),
		selected:       -1,
		inputEnabled:   !sess.Busy(),
		streaming:      sess.Streaming(),
		showTimestamps: opts.ShowTimestamps,
		open:           opts.Open,
		width:          80,
		height:         24,
	}
}

// Init starts listening for session events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.sess.Events()), textinput.Blink}
	if m.open {
		cmds = append(cmds, openCmd(m.ctx, m.sess))
	}
	return tea.Batch(cmds...)
}

// Focus returns the focused area.
func (m Model) Focus() Focus {
	return m.focus
}

// Input returns the text in the message field.
func (m Model) Input() string {
	return m.input.Value()
}

// Streaming reports the response mode shown in the status bar.
func (m Model) Streaming() bool {
	return m.streaming
}

// Toasts returns the visible toasts.
func (m Model) Toasts() []components.Toast {
	return m.toasts.Toasts()
}
