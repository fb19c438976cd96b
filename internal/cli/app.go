// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared setup for commands that talk to the backend.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jeranaias/jarvis-tui/internal/config"
	"github.com/jeranaias/jarvis-tui/internal/logging"
	"github.com/jeranaias/jarvis-tui/internal/session"
	"github.com/jeranaias/jarvis-tui/internal/transport"
)

// =============================================================================
// APP
// =============================================================================

// App is the configuration, logger and terminal streams of one command.
type App struct {
	Config *config.Config

	// ConfigPath is the file the config came from, or "" for defaults.
	ConfigPath string

	Log zerolog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive allows prompting for a missing password.
	Interactive bool

	logCloser io.Closer
}

// LogSink selects where an App logs.
type LogSink int

const (
	// LogToFile keeps the terminal clean; --debug still logs to the file.
	LogToFile LogSink = iota

	// LogToConsole writes to stderr. Used by serve, and by line commands
	// under --debug.
	LogToConsole
)

// NewApp loads the config, applies the command-line overrides and opens
// the log sink.
func NewApp(args Args, sink LogSink) (*App, error) {
	cfg, path, err := loadConfig(args)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, args)

	logFile := cfg.Log.File
	if logFile == "" {
		if dir, dirErr := config.ConfigDir(); dirErr == nil {
			logFile = logging.DefaultFile(dir)
		}
	}
	log, closer, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    logFile,
		Console: sink == LogToConsole,
	})
	if err != nil {
		// Logging is best effort; the command still runs.
		fmt.Fprintf(os.Stderr, "%s %v\n", WarningStyle.Render("Warning:"), err)
	}

	return &App{
		Config:      cfg,
		ConfigPath:  path,
		Log:         log,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: IsTTY(),
		logCloser:   closer,
	}, nil
}

// Close flushes the log sink.
func (a *App) Close() error {
	if a.logCloser == nil {
		return nil
	}
	return a.logCloser.Close()
}

// loadConfig reads --config when given, else the default locations.
func loadConfig(args Args) (*config.Config, string, error) {
	if args.ConfigPath != "" {
		config.LoadDotEnv()
		cfg, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, "", &ConfigError{Path: args.ConfigPath, Err: err}
		}
		return cfg, args.ConfigPath, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", &ConfigError{Err: err}
	}
	return cfg, config.DefaultPath(), nil
}

// applyFlags lets command-line flags win over file and environment.
func applyFlags(cfg *config.Config, args Args) {
	if args.URL != "" {
		cfg.Backend.URL = args.URL
	}
	if args.User != "" && args.User != cfg.Backend.Username {
		cfg.Backend.Username = args.User
		// A password configured for another account is useless here.
		cfg.Backend.Password = ""
	}
	if args.Debug {
		cfg.Log.Level = "debug"
	}
}

// =============================================================================
// BACKEND
// =============================================================================

// ensurePassword prompts for the password when a user is configured
// without one.
func (a *App) ensurePassword() error {
	b := &a.Config.Backend
	if b.Username == "" || b.Password != "" {
		return nil
	}
	if !a.Interactive {
		return NewValidationErrorWithExample("password", "",
			"no password for "+b.Username+" and stdin is not a terminal",
			"JARVIS_PASSWORD=... jarvis ask \"oi\"")
	}
	pw, err := promptPassword(a.Stderr, fmt.Sprintf("Senha para %s: ", b.Username))
	if err != nil {
		return err
	}
	b.Password = pw
	return nil
}

// Client returns a logged-in backend client. Without a configured user the
// client is returned as is, for backends that do not require login.
func (a *App) Client(ctx context.Context) (*transport.Client, error) {
	if err := a.ensurePassword(); err != nil {
		return nil, err
	}
	client := session.NewClient(a.Config, a.Log)
	if err := client.Login(ctx); err != nil && !errors.Is(err, transport.ErrNoCredentials) {
		return nil, err
	}
	return client, nil
}

// Session returns an opened session. Close it when done.
func (a *App) Session(ctx context.Context, opts func(*session.Options)) (*session.Session, error) {
	if err := a.ensurePassword(); err != nil {
		return nil, err
	}
	client := session.NewClient(a.Config, a.Log)
	so := session.OptionsFromConfig(a.Config, a.Log)
	if opts != nil {
		opts(&so)
	}
	sess := session.New(client, so)
	if err := sess.Open(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}
