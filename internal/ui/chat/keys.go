// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen. Some bindings only
// apply in one focus area; see Model.handleKey.
type KeyMap struct {
	// Global
	Quit            key.Binding
	ToggleStreaming key.Binding
	Clear           key.Binding
	Sidebar         key.Binding
	Help            key.Binding

	// Input
	Submit     key.Binding
	NextCard   key.Binding
	PrevCard   key.Binding
	ToTimeline key.Binding
	PageUp     key.Binding
	PageDown   key.Binding

	// Timeline and sidebar
	Up      key.Binding
	Down    key.Binding
	Like    key.Binding
	Dislike key.Binding
	Save    key.Binding
	Use     key.Binding
	Delete  key.Binding
	Back    key.Binding

	// Correction surface
	SubmitCorrection key.Binding
	Outside          key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "sair"),
		),
		ToggleStreaming: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "alternar streaming"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "nova conversa"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "atalhos"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "ajuda"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "enviar"),
		),
		NextCard: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "próxima sugestão"),
		),
		PrevCard: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "sugestão anterior"),
		),
		ToTimeline: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "selecionar mensagens"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "rolar para cima"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "rolar para baixo"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "anterior"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "próxima"),
		),
		Like: key.NewBinding(
			key.WithKeys("+", "l"),
			key.WithHelp("+", "útil"),
		),
		Dislike: key.NewBinding(
			key.WithKeys("-", "d"),
			key.WithHelp("-", "não útil"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "salvar atalho"),
		),
		Use: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "usar atalho"),
		),
		Delete: key.NewBinding(
			key.WithKeys("delete", "x"),
			key.WithHelp("del/x", "remover atalho"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "voltar"),
		),
		SubmitCorrection: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "enviar correção"),
		),
		Outside: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "sair da correção"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.ToggleStreaming, k.Sidebar, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NextCard, k.ToTimeline, k.PageUp, k.PageDown},
		{k.Like, k.Dislike, k.Save, k.Back},
		{k.Use, k.Delete, k.SubmitCorrection, k.Outside},
		{k.ToggleStreaming, k.Clear, k.Sidebar, k.Quit},
	}
}
