// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/feedback"
	"github.com/jeranaias/jarvis-tui/internal/shortcuts"
	"github.com/jeranaias/jarvis-tui/internal/timeline"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

func testTheme() *styles.Theme {
	t := styles.NewTheme("dark")
	t.SetSize(100, 30)
	return t
}

// =============================================================================
// TOAST TESTS
// =============================================================================

func TestToastManager_NewestFirstAndCapped(t *testing.T) {
	m := NewToastManager(nil)
	for i := 0; i < maxToasts+2; i++ {
		m.Add(ToastKindInfo, "msg")
	}
	last := m.Add(ToastKindError, "falhou")

	toasts := m.Toasts()
	require.Len(t, toasts, maxToasts)
	require.Equal(t, last, toasts[0].ID)
	require.Equal(t, ErrorToastDuration, toasts[0].Duration)
}

func TestToastManager_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewToastManager(func() time.Time { return now })

	m.Add(ToastKindSuccess, "salvo")
	m.Add(ToastKindError, "erro")

	now = now.Add(DefaultToastDuration)
	require.True(t, m.Tick())
	toasts := m.Toasts()
	require.Len(t, toasts, 1)
	require.Equal(t, ToastKindError, toasts[0].Kind)

	now = now.Add(ErrorToastDuration)
	require.False(t, m.Tick())
}

func TestToastManager_Dismiss(t *testing.T) {
	m := NewToastManager(nil)
	id := m.Add(ToastKindWarning, "cuidado")
	m.Add(ToastKindInfo, "info")
	m.Dismiss(id)

	toasts := m.Toasts()
	require.Len(t, toasts, 1)
	require.Equal(t, "info", toasts[0].Message)
}

func TestRenderToastStack(t *testing.T) {
	theme := testTheme()
	require.Empty(t, RenderToastStack(theme, nil, 80))

	out := RenderToastStack(theme, []Toast{{Message: "Atalho salvo", Kind: ToastKindSuccess}}, 80)
	require.Contains(t, out, "Atalho salvo")
}

// =============================================================================
// WELCOME TESTS
// =============================================================================

func TestWelcome_Selection(t *testing.T) {
	w := NewWelcome(testTheme(), []config.Suggestion{
		{Title: "Tempo", Text: "Qual a previsão?"},
		{Title: "Resumo", Text: "Faça um resumo de ", Append: true},
	})

	_, ok := w.Selected()
	require.False(t, ok)

	w.Move(-1)
	s, ok := w.Selected()
	require.True(t, ok)
	require.Equal(t, "Resumo", s.Title)

	w.Move(1)
	s, _ = w.Selected()
	require.Equal(t, "Tempo", s.Title)

	w.SetSuggestions([]config.Suggestion{{Title: "Só uma"}})
	w.Move(1)
	s, _ = w.Selected()
	require.Equal(t, "Só uma", s.Title)

	w.Deselect()
	_, ok = w.Selected()
	require.False(t, ok)
}

func TestWelcome_View(t *testing.T) {
	w := NewWelcome(testTheme(), []config.Suggestion{{Title: "Piada", Text: "Conte uma piada."}})
	w.SetUser("ana")
	w.SetWidth(80)

	out := w.View()
	require.Contains(t, out, "Olá, ana!")
	require.Contains(t, out, "Piada")
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func TestSidebar_CursorFollowsItems(t *testing.T) {
	s := NewSidebar(testTheme())
	_, ok := s.Selected()
	require.False(t, ok)

	s.SetItems([]shortcuts.Shortcut{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}, {ID: 3, Text: "c"}})
	s.Move(5)
	sc, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, int64(3), sc.ID)

	// Deleting the last item pulls the cursor back into range.
	s.SetItems([]shortcuts.Shortcut{{ID: 1, Text: "a"}})
	sc, ok = s.Selected()
	require.True(t, ok)
	require.Equal(t, int64(1), sc.ID)

	s.Move(-3)
	sc, _ = s.Selected()
	require.Equal(t, int64(1), sc.ID)
}

func TestSidebar_TruncatesLongText(t *testing.T) {
	s := NewSidebar(testTheme())
	s.SetSize(20, 10)
	s.SetItems([]shortcuts.Shortcut{{ID: 1, Text: "um atalho muito\ncomprido demais para caber"}})

	out := s.View()
	require.Contains(t, out, "Atalhos")
	require.Contains(t, out, "1. um atalho")
	require.Contains(t, out, "…")
	require.NotContains(t, out, "caber")
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessageRenderer_StylesMarkup(t *testing.T) {
	r := NewMessageRenderer(testTheme())
	ex := timeline.Exchange{
		UserText:     "oi",
		ResponseText: "Olá <b>mundo</b>, 2 < 3",
		Timestamp:    "10:00",
		State:        timeline.StateComplete,
	}

	out := r.Render(ex, MessageOptions{Width: 80, ShowTimestamp: true})
	require.Contains(t, out, "oi")
	require.Contains(t, out, "mundo")
	require.Contains(t, out, "2 < 3")
	require.Contains(t, out, "10:00")
	require.NotContains(t, out, "<b>")
}

func TestMessageRenderer_FailedAndInterrupted(t *testing.T) {
	r := NewMessageRenderer(testTheme())

	failed := r.Render(timeline.Exchange{
		UserText:     "oi",
		ResponseText: "parcial",
		State:        timeline.StateFailed,
		Notice:       "Erro na conexão",
	}, MessageOptions{Width: 80})
	require.Contains(t, failed, "parcial")
	require.Contains(t, failed, "Erro na conexão")

	cut := r.Render(timeline.Exchange{
		UserText:     "oi",
		ResponseText: "meia resp",
		State:        timeline.StateComplete,
		Interrupted:  true,
	}, MessageOptions{Width: 80})
	require.Contains(t, cut, "interrompida")
}

func TestMessageRenderer_Controls(t *testing.T) {
	r := NewMessageRenderer(testTheme())
	ex := timeline.Exchange{UserText: "oi", ResponseText: "Olá", State: timeline.StateComplete}

	none := r.Render(ex, MessageOptions{Width: 80})
	require.NotContains(t, none, "[+]")

	out := r.Render(ex, MessageOptions{
		Width:       80,
		Selected:    true,
		HasControls: true,
		Controls:    feedback.Controls{LikeEnabled: true, DislikeEnabled: true},
		CanSave:     true,
	})
	require.Contains(t, out, "[+] útil")
	require.Contains(t, out, "[-] não útil")
	require.Contains(t, out, "salvar atalho")

	saved := r.Render(ex, MessageOptions{Width: 80, Selected: true})
	require.True(t, strings.Contains(saved, "atalho salvo"))
}

// =============================================================================
// CHROME TESTS
// =============================================================================

func TestStatusBar_ShowsMode(t *testing.T) {
	s := NewStatusBar(testTheme())
	s.Width = 120

	require.Contains(t, s.View(), "normal")
	s.Streaming = true
	s.Busy = true
	out := s.View()
	require.Contains(t, out, "streaming")
	require.Contains(t, out, "aguardando")
}

func TestHeader_View(t *testing.T) {
	h := NewHeader(testTheme())
	h.Width = 60
	h.User = "ana"
	out := h.View()
	require.Contains(t, out, "Jarvis")
	require.Contains(t, out, "ana")
}
