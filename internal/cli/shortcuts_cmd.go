// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shortcuts_cmd.go - Shortcut management without the chat screen.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/jarvis-tui/internal/transport"
	"github.com/jeranaias/jarvis-tui/internal/util"
)

// shortcutBackend is the part of the transport client the command uses.
type shortcutBackend interface {
	ListShortcuts(ctx context.Context) ([]transport.Shortcut, error)
	AddShortcut(ctx context.Context, text string) (transport.Shortcut, error)
	DeleteShortcut(ctx context.Context, id int64) error
}

// RunShortcuts runs "shortcuts [list|add TEXT|rm ID]".
func RunShortcuts(args Args) error {
	sink := LogToFile
	if args.Debug && !args.JSON {
		sink = LogToConsole
	}
	app, err := NewApp(args, sink)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	client, err := app.Client(ctx)
	if err != nil {
		return err
	}
	return runShortcuts(ctx, client, args, app.Stdout)
}

func runShortcuts(ctx context.Context, b shortcutBackend, args Args, out io.Writer) error {
	switch args.Subcommand {
	case "list", "ls":
		return listShortcuts(ctx, b, args.JSON, out)

	case "add":
		text := strings.TrimSpace(args.Text)
		if text == "" {
			return ErrMissingArgument("text", `jarvis shortcuts add "Resumo do dia"`)
		}
		sc, err := b.AddShortcut(ctx, text)
		if err != nil {
			return NewCommandError("shortcuts", "add", "backend rejected the shortcut", err)
		}
		if args.JSON {
			return NewJSONResponse("shortcuts add", ShortcutData{ID: sc.ID, Text: sc.Text}).Print(out)
		}
		fmt.Fprintf(out, "%s atalho %d salvo\n", SuccessStyle.Render("✓"), sc.ID)
		return nil

	case "rm":
		id, err := ParsePositiveInt(args.ID, "ID")
		if err != nil {
			return err
		}
		if err := b.DeleteShortcut(ctx, id); err != nil {
			return NewCommandError("shortcuts", "rm", fmt.Sprintf("could not delete shortcut %d", id), err)
		}
		if args.JSON {
			return NewJSONResponse("shortcuts rm", ShortcutData{ID: id}).Print(out)
		}
		fmt.Fprintf(out, "%s atalho %d removido\n", SuccessStyle.Render("✓"), id)
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"expected list, add or rm", "jarvis shortcuts add TEXT")
	}
}

func listShortcuts(ctx context.Context, b shortcutBackend, jsonMode bool, out io.Writer) error {
	list, err := b.ListShortcuts(ctx)
	if err != nil {
		return NewCommandError("shortcuts", "list", "could not load shortcuts", err)
	}

	if jsonMode {
		data := make([]ShortcutData, 0, len(list))
		for _, sc := range list {
			data = append(data, ShortcutData{ID: sc.ID, Text: sc.Text})
		}
		return NewJSONResponse("shortcuts list", data).Print(out)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, DimStyle.Render("Nenhum atalho salvo."))
		return nil
	}
	for _, sc := range list {
		fmt.Fprintf(out, "%s  %s\n",
			DimStyle.Render(fmt.Sprintf("%4d", sc.ID)),
			util.TruncateWidth(util.SingleLine(sc.Text), 72))
	}
	return nil
}
