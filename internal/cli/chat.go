// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-by-line chat.

package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and input history for interactive chat.
// History lives for the process only.
type ChatCLI struct {
	line *liner.State
}

// NewChatCLI creates a new ChatCLI.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &ChatCLI{line: line}
}

// ReadInput reads a line, pre-filled with text. Supports history
// navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt, text string) (string, error) {
	var input string
	var err error
	if text != "" {
		input, err = c.line.PromptWithSuggestion(prompt, text, -1)
	} else {
		input, err = c.line.Prompt(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close restores the terminal.
func (c *ChatCLI) Close() {
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// lineReader is the part of ChatCLI the loop needs.
type lineReader interface {
	ReadInput(prompt, text string) (string, error)
}

// RunChat runs the "chat" command.
func RunChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	sink := LogToFile
	if args.Debug {
		sink = LogToConsole
	}
	app, err := NewApp(args, sink)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := app.Session(ctx, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	con := newConsole(sess, app.Stdout, responseStyler())
	con.printWelcome(app.Config.Backend.Username)

	input := NewChatCLI()
	defer input.Close()

	return chatLoop(ctx, con, input)
}

// chatLoop reads lines until /quit, EOF or ctrl+c.
func chatLoop(ctx context.Context, con *console, in lineReader) error {
	prompt := "você › "
	for {
		con.drain()
		line, err := in.ReadInput(prompt, con.takePending())
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		err = con.handleLine(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, context.Canceled):
			// ctrl+c while a reply was printing
			return nil
		case err != nil:
			return err
		}
	}
}
