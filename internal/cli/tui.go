// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat.

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/ui/chat"
	"github.com/jeranaias/jarvis-tui/internal/ui/styles"
)

// RunTUI runs the default command. Logs always go to the file since the
// screen belongs to the program.
func RunTUI(args Args) error {
	if err := RequiresTTY("start the chat screen"); err != nil {
		return err
	}

	app, err := NewApp(args, LogToFile)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Login happens before the alt screen so a bad password is a plain error.
	sess, err := app.Session(ctx, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.WatchConfig(app.ConfigPath); err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		app.Log.Warn().Err(err).Str("path", app.ConfigPath).Msg("config reload disabled")
	}

	cfg := app.Config
	model := chat.New(ctx, sess, chat.Options{
		Theme:          styles.NewTheme(cfg.UI.Theme),
		Suggestions:    cfg.UI.Suggestions,
		ShowTimestamps: cfg.UI.ShowTimestamps,
		User:           cfg.Backend.Username,
		Logger:         app.Log,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}
	app.Log.Info().Msg("chat closed")
	return nil
}
