// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for jarvis.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdShortcuts
	CmdServe
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdShortcuts:
		return "shortcuts"
	case CmdServe:
		return "serve"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	URL        string
	User       string
	Debug      bool
	JSON       bool // Output in JSON format

	// ask
	Query  string
	Stream bool

	// shortcuts
	Subcommand string
	Text       string
	ID         string

	// serve
	Addr   string
	DBPath string

	// Unknown is set when the first word was not a command.
	Unknown string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `jarvis - terminal client for the Jarvis assistant

Usage:
  jarvis                        Start the chat screen (default)
  jarvis tui                    Start the chat screen
  jarvis chat                   Line-by-line chat in the terminal
  jarvis ask "question"         Ask a single question
  jarvis shortcuts [list]       List saved shortcuts
  jarvis shortcuts add TEXT     Save a shortcut
  jarvis shortcuts rm ID        Delete a shortcut
  jarvis serve                  Run the development backend
  jarvis version                Show version information
  jarvis help                   Show this help

Ask Options:
  --stream                      Stream the response as it is generated

Serve Options:
  --addr ADDR                   Listen address (default: 127.0.0.1:5000)
  --db PATH                     SQLite database file (default: in memory)

Global Flags:
  --config PATH                 Config file (default: ~/.jarvis/config.toml)
  --url URL                     Backend URL
  --user NAME                   Log in as NAME (the password is prompted)
  --debug                       Debug logging
  --json                        JSON output for ask, shortcuts and version

Chat Commands:
  /like                         Rate the last response as useful
  /dislike [correction]         Rate the last response as not useful
  /save                         Save the last message as a shortcut
  /shortcuts                    List shortcuts
  /use N                        Put shortcut N in the prompt
  /rm N                         Delete shortcut N
  /stream                       Toggle streamed responses
  /clear                        Start a new conversation
  /quit                         Leave

Environment:
  JARVIS_URL, JARVIS_USER, JARVIS_PASSWORD, JARVIS_STREAMING, JARVIS_LOG_LEVEL
  NO_COLOR                      Disable colored output

Examples:
  jarvis --url http://localhost:5000 --user ana
  jarvis ask --stream "Qual a previsão do tempo?"
  jarvis shortcuts add "Resumo do dia"
  jarvis serve --addr :5000 --db ./jarvis.db

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "jarvis version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(argv)

	// If no remaining args, default to TUI
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "shortcuts", "shortcut", "sc":
		parseShortcutArgs(&parsedArgs, remaining)
		return CmdShortcuts, parsedArgs

	case "serve", "server":
		parseServeArgs(&parsedArgs, remaining)
		return CmdServe, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Unknown = cmd
		return CmdHelp, parsedArgs
	}
}

// globalValueFlags take a value: "--flag value" or "--flag=value".
var globalValueFlags = map[string]func(*Args, string){
	"--config": func(a *Args, v string) { a.ConfigPath = v },
	"--url":    func(a *Args, v string) { a.URL = v },
	"--user":   func(a *Args, v string) { a.User = v },
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--debug":
			parsedArgs.Debug = true
			continue
		case "--json":
			parsedArgs.JSON = true
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		set, ok := globalValueFlags[name]
		if !ok {
			remaining = append(remaining, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				continue
			}
			i++
			value = args[i]
		}
		set(&parsedArgs, value)
	}

	return remaining, parsedArgs
}

// parseAskArgs collects the question. Words are joined so quoting is
// optional.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		switch arg {
		case "-s", "--stream":
			args.Stream = true
		default:
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

// parseShortcutArgs parses "shortcuts [list|add TEXT|rm ID]".
func parseShortcutArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = strings.ToLower(p.Subcommand())
	switch args.Subcommand {
	case "":
		args.Subcommand = "list"
	case "add":
		args.Text = JoinPositionalArgs(p, 1)
	case "rm", "remove", "delete", "del":
		args.Subcommand = "rm"
		args.ID = p.Positional(1)
	}
}

// parseServeArgs parses "serve [--addr ADDR] [--db PATH]".
func parseServeArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Addr = p.Flag("addr")
	args.DBPath = p.Flag("db")
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// ERROR HANDLING: Errors must not be silently ignored

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		_ = NewJSONResponse("version", data).Print(os.Stdout)
		return
	}
	PrintVersion(os.Stdout)
}

// HandleHelp handles the "help" command. An unknown command is reported
// on stderr and exits with a usage error.
func HandleHelp(args Args) {
	if args.Unknown != "" {
		fmt.Fprintf(os.Stderr, "%s unknown command %q\n\n", ErrorStyle.Render("Error:"), args.Unknown)
		PrintUsage(os.Stderr)
		os.Exit(ExitUsageError)
	}
	PrintUsage(os.Stdout)
}

// Run executes cmd and returns the process exit code.
func Run(cmd Command, args Args) int {
	var err error
	switch cmd {
	case CmdTUI:
		err = RunTUI(args)
	case CmdChat:
		err = RunChat(args)
	case CmdAsk:
		err = RunAsk(args)
	case CmdShortcuts:
		err = RunShortcuts(args)
	case CmdServe:
		err = RunServe(args)
	case CmdVersion:
		HandleVersion(args)
	default:
		HandleHelp(args)
	}
	if err != nil {
		DisplayError(err, args.JSON, cmd.String())
		return GetExitCode(err)
	}
	return ExitSuccess
}
