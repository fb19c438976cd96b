// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/session"
	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
	"github.com/jeranaias/jarvis-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	redraw := true

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case sessionEventMsg:
		if _, ok := msg.Event.(session.ExchangeChanged); ok {
			redraw = false
		}
		cmds = append(cmds, m.handleEvent(msg.Event), waitForEvent(m.sess.Events()))

	case eventsClosedMsg:
		return m, tea.Quit

	case dispatchResultMsg:
		cmds = append(cmds, m.handleResult(msg))

	case openResultMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("login failed")
			cmds = append(cmds, m.addToast(components.ToastKindError, "Não foi possível entrar no servidor."))
		}

	case frameMsg:
		m.frameScheduled = false

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			cmds = append(cmds, components.ToastTickCmd())
		} else {
			m.toastsTicking = false
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if m.focus == FocusCorrection {
			m.correction, cmd = m.correction.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.layout()
	if redraw {
		m.refresh()
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.ToggleStreaming):
		return m.dispatch(session.ToggleStreaming{})
	case key.Matches(msg, m.keys.Clear):
		return m.dispatch(session.Clear{})
	case key.Matches(msg, m.keys.Sidebar):
		return m.toggleSidebar()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return nil
	}

	switch m.focus {
	case FocusTimeline:
		return m.handleTimelineKey(msg)
	case FocusSidebar:
		return m.handleSidebarKey(msg)
	case FocusCorrection:
		return m.handleCorrectionKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	empty := m.sess.Timeline().Len() == 0

	switch {
	case key.Matches(msg, m.keys.Submit):
		if empty && strings.TrimSpace(m.input.Value()) == "" {
			if s, ok := m.welcome.Selected(); ok {
				return m.useSuggestion(s)
			}
		}
		return m.submit()

	case empty && key.Matches(msg, m.keys.NextCard):
		m.welcome.Move(1)
		return nil

	case empty && key.Matches(msg, m.keys.PrevCard):
		m.welcome.Move(-1)
		return nil

	case !empty && m.input.Value() == "" && key.Matches(msg, m.keys.ToTimeline):
		m.setFocus(FocusTimeline)
		m.selected = m.sess.Timeline().Len() - 1
		m.scrollToSelected()
		return nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleTimelineKey(msg tea.KeyMsg) tea.Cmd {
	entries := m.sess.Timeline().Entries()
	if len(entries) == 0 {
		m.setFocus(FocusInput)
		return nil
	}
	if m.selected < 0 || m.selected >= len(entries) {
		m.selected = len(entries) - 1
	}
	id := entries[m.selected].ID

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		m.scrollToSelected()
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(entries)-1 {
			m.selected++
			m.scrollToSelected()
		} else {
			m.setFocus(FocusInput)
		}
	case key.Matches(msg, m.keys.Like):
		return m.dispatch(session.Rate{ExchangeID: id, Positive: true})
	case key.Matches(msg, m.keys.Dislike):
		return m.dispatch(session.Rate{ExchangeID: id, Positive: false})
	case key.Matches(msg, m.keys.Save):
		return m.dispatch(session.SaveShortcut{ExchangeID: id})
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Submit):
		m.setFocus(FocusInput)
	}
	return nil
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.sidebar.Move(1)
	case key.Matches(msg, m.keys.Use):
		if sc, ok := m.sidebar.Selected(); ok {
			return m.dispatch(session.UseShortcut{ID: sc.ID})
		}
	case key.Matches(msg, m.keys.Delete):
		if sc, ok := m.sidebar.Selected(); ok {
			return m.dispatch(session.DeleteShortcut{ID: sc.ID})
		}
	case key.Matches(msg, m.keys.Back):
		m.setFocus(FocusInput)
	}
	return nil
}

func (m *Model) handleCorrectionKey(msg tea.KeyMsg) tea.Cmd {
	id := m.correctionFor
	switch {
	case key.Matches(msg, m.keys.SubmitCorrection):
		return m.dispatch(session.Correct{ExchangeID: id, Action: session.CorrectionSubmit, Text: m.correction.Value()})
	case key.Matches(msg, m.keys.Back):
		return m.dispatch(session.Correct{ExchangeID: id, Action: session.CorrectionClose})
	case key.Matches(msg, m.keys.Outside):
		return m.dispatch(session.Correct{ExchangeID: id, Action: session.CorrectionClickOutside})
	}
	var cmd tea.Cmd
	m.correction, cmd = m.correction.Update(msg)
	return cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Type {
	case tea.MouseWheelUp:
		m.viewport.LineUp(3)
	case tea.MouseWheelDown:
		m.viewport.LineDown(3)
	case tea.MouseLeft:
		if m.focus == FocusCorrection && !m.insideCorrection(msg.Y) {
			return m.dispatch(session.Correct{ExchangeID: m.correctionFor, Action: session.CorrectionClickOutside})
		}
	}
	return nil
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	switch ev := ev.(type) {
	case session.ExchangeChanged:
		// Reveals produce an event per unit; redraw at most once a frame.
		if !m.frameScheduled {
			m.frameScheduled = true
			return frameCmd()
		}

	case session.FeedbackChanged:
		switch {
		case ev.Change.State == feedback.StateAwaitingCorrection:
			return m.openCorrection(ev.Change.ExchangeID)
		case ev.Change.ExchangeID == m.correctionFor:
			m.closeCorrection()
		}

	case session.ShortcutsChanged:
		m.sidebar.SetItems(ev.Items)

	case session.InputChanged:
		m.inputEnabled = ev.Enabled
		if !ev.Enabled {
			return m.spinner.Start()
		}
		m.spinner.Stop()

	case session.StreamingChanged:
		m.streaming = ev.Enabled

	case session.Cleared:
		m.selected = -1
		m.closeCorrection()
		m.welcome.Deselect()
		m.optimizer.Reset()
		if m.focus == FocusTimeline {
			m.setFocus(FocusInput)
		}

	case session.Toast:
		return m.addToast(toastKind(ev.Level), ev.Message)
	}
	return nil
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

func (m *Model) handleResult(msg dispatchResultMsg) tea.Cmd {
	err := msg.Err
	switch c := msg.Command.(type) {
	case session.Send:
		switch {
		case err == nil, errors.Is(err, session.ErrEmptyMessage), errors.Is(err, session.ErrClosed):
		case errors.Is(err, session.ErrBusy):
			// Give the text back so it is not lost.
			if m.input.Value() == "" {
				m.input.SetValue(c.Text)
				m.input.CursorEnd()
			}
			return m.addToast(components.ToastKindWarning, "Aguarde a resposta atual.")
		default:
			m.log.Error().Err(err).Msg("send failed")
			return m.addToast(components.ToastKindError, "Não foi possível enviar a mensagem.")
		}

	case session.UseShortcut:
		if err != nil {
			return nil
		}
		m.input.SetValue(msg.Result.Input)
		m.input.CursorEnd()
		m.setFocus(FocusInput)

	case session.ToggleStreaming:
		m.streaming = msg.Result.Streaming

	case session.Rate:
		switch {
		case err == nil:
			if msg.Result.Feedback == feedback.StateAwaitingCorrection {
				return m.openCorrection(c.ExchangeID)
			}
		case errors.Is(err, feedback.ErrAlreadyRated):
			return m.addToast(components.ToastKindInfo, "Esta resposta já foi avaliada.")
		case errors.Is(err, feedback.ErrCorrectionOpen), errors.Is(err, feedback.ErrAwaitingCorrect):
			return m.addToast(components.ToastKindInfo, "Conclua a correção aberta primeiro.")
		case errors.Is(err, feedback.ErrNotAttached):
			return m.addToast(components.ToastKindInfo, "Aguarde a resposta terminar.")
		}

	case session.Correct:
		if c.ExchangeID == m.correctionFor {
			m.closeCorrection()
		}

	case session.Clear:
		if errors.Is(err, session.ErrBusy) {
			return m.addToast(components.ToastKindWarning, "Aguarde a resposta atual para limpar.")
		}

	case session.DeleteShortcut:
		if errors.Is(err, shortcuts.ErrUnknownShortcut) {
			m.sidebar.SetItems(m.sess.Shortcuts().Items())
		}
	}
	return nil
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m *Model) dispatch(cmd session.Command) tea.Cmd {
	return dispatchCmd(m.ctx, m.sess, cmd)
}

func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || !m.inputEnabled {
		return nil
	}
	m.input.Reset()
	m.welcome.Deselect()
	m.selected = -1
	m.stickBottom = true
	return m.dispatch(session.Send{Text: text})
}

// useSuggestion sends a suggestion card, or places it in the input when the
// card only starts a sentence.
func (m *Model) useSuggestion(s config.Suggestion) tea.Cmd {
	m.welcome.Deselect()
	if s.Append {
		m.input.SetValue(s.Text)
		m.input.CursorEnd()
		return nil
	}
	if !m.inputEnabled {
		return nil
	}
	m.stickBottom = true
	return m.dispatch(session.Send{Text: s.Text})
}

func (m *Model) toggleSidebar() tea.Cmd {
	if m.focus == FocusSidebar {
		m.showSidebar = false
		m.setFocus(FocusInput)
		return nil
	}
	if m.focus == FocusCorrection {
		return nil
	}
	m.showSidebar = true
	m.setFocus(FocusSidebar)
	return nil
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.input.Blur()
	m.correction.Blur()
	m.sidebar.Blur()
	switch f {
	case FocusInput:
		m.input.Focus()
		m.selected = -1
	case FocusSidebar:
		m.sidebar.Focus()
	case FocusCorrection:
		m.correction.Focus()
	}
}

func (m *Model) openCorrection(exchangeID string) tea.Cmd {
	if m.correctionFor == exchangeID && m.focus == FocusCorrection {
		return nil
	}
	m.correctionFor = exchangeID
	m.correction.Reset()
	m.setFocus(FocusCorrection)
	return nil
}

func (m *Model) closeCorrection() {
	if m.correctionFor == "" {
		return
	}
	m.correctionFor = ""
	m.correction.Reset()
	if m.focus == FocusCorrection {
		m.setFocus(FocusInput)
	}
}

func (m *Model) addToast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(kind, text)
	if m.toastsTicking {
		return nil
	}
	m.toastsTicking = true
	return components.ToastTickCmd()
}

func toastKind(level session.ToastLevel) components.ToastKind {
	switch level {
	case session.ToastSuccess:
		return components.ToastKindSuccess
	case session.ToastWarning:
		return components.ToastKindWarning
	case session.ToastError:
		return components.ToastKindError
	default:
		return components.ToastKindInfo
	}
}
