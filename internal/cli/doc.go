// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the jarvis command line.
//
// # Commands
//
//   - tui (default): full-screen chat built on internal/ui/chat
//   - chat: line-by-line chat with liner editing and paced output
//   - ask: one question, optionally streamed, optionally as JSON
//   - shortcuts: list, add and remove saved shortcuts
//   - serve: the development backend from internal/server
//
// # Usage
//
//	cmd, args := cli.Parse()
//	os.Exit(cli.Run(cmd, args))
//
// Handlers return errors; Run prints them once and maps them to exit codes
// (see GetExitCode). Colors follow NO_COLOR and are off for piped output.
package cli
