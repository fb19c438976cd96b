// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Development backend.

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/server"
)

// RunServe runs "serve [--addr ADDR] [--db PATH]" until interrupted.
func RunServe(args Args) error {
	app, err := NewApp(args, LogToConsole)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := serverOptions(app.Config, args, app.Log)
	if opts.Username == "" {
		app.Log.Warn().Msg("no [server] username configured; logins will fail")
	}
	srv, err := server.New(opts)
	if err != nil {
		return NewCommandError("serve", "start", "could not open the database", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}

// serverOptions merges the [server] config section with the flags.
func serverOptions(cfg *config.Config, args Args, log zerolog.Logger) server.Options {
	opts := server.Options{
		Addr:       cfg.Server.Addr,
		DBPath:     cfg.Server.DBPath,
		ChunkDelay: cfg.Server.ChunkDelay(),
		Username:   cfg.Server.Username,
		Password:   cfg.Server.Password,
		Logger:     log,
	}
	if args.Addr != "" {
		opts.Addr = args.Addr
	}
	if args.DBPath != "" {
		opts.DBPath = args.DBPath
	}
	return opts
}
