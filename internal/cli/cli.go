// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses duckchat's command line and renders terminal output.
package cli

import (
	"fmt"
	"strings"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Command is the top-level action selected by the command line.
type Command int

const (
	// CmdChat sends a query (the default when positional args remain).
	CmdChat Command = iota
	// CmdSessions lists stored sessions.
	CmdSessions
	// CmdConfig shows or updates configuration.
	CmdConfig
	// CmdVersion prints the version.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
)

// Invocation is the fully parsed command line.
type Invocation struct {
	Command     Command
	Query       string
	Model       string
	Session     string
	Continue    bool
	Interactive bool
	Quiet       bool
	Verbose     bool

	// Config subcommand arguments: "show" (default), or "set KEY VALUE".
	ConfigArgs []string
}

// boolFlagNames lists every flag that takes no value.
var boolFlagNames = map[string]bool{
	"c": true, "continue": true,
	"i": true, "interactive": true,
	"q": true, "quiet": true,
	"v": true, "verbose": true,
	"version": true,
	"h":       true, "help": true,
}

// Parse interprets the command line (without the program name).
func Parse(args []string) (*Invocation, error) {
	parser := NewArgParser(args, boolFlagNames)

	inv := &Invocation{
		Model:       parser.Flag("m", "model"),
		Session:     parser.Flag("s", "session"),
		Continue:    parser.BoolFlag("c", "continue"),
		Interactive: parser.BoolFlag("i", "interactive"),
		Quiet:       parser.BoolFlag("q", "quiet"),
		Verbose:     parser.BoolFlag("v", "verbose"),
	}

	switch {
	case parser.BoolFlag("h", "help"):
		inv.Command = CmdHelp
		return inv, nil
	case parser.BoolFlag("version"):
		inv.Command = CmdVersion
		return inv, nil
	}

	switch parser.Positional(0) {
	case "sessions":
		inv.Command = CmdSessions
		return inv, nil
	case "config":
		inv.Command = CmdConfig
		inv.ConfigArgs = parser.PositionalFrom(1)
		return inv, nil
	}

	inv.Command = CmdChat
	inv.Query = strings.Join(parser.PositionalFrom(0), " ")

	if inv.Query == "" && !inv.Interactive {
		return nil, fmt.Errorf("no query given (try --interactive, or --help for usage)")
	}
	return inv, nil
}

// Usage returns the help text.
func Usage() string {
	return `duckchat - chat with DuckDuckGo AI from the command line

Usage:
  duckchat [flags] <query...>
  duckchat -i [flags]
  duckchat sessions
  duckchat config [show | set KEY VALUE]

Flags:
  -m, --model NAME     model to use (gpt4o-mini, claude3, llama3, mixtral)
  -s, --session NAME   named session to use or create
  -c, --continue       continue the most recent session
  -i, --interactive    interactive prompt, one turn per line
  -q, --quiet          suppress informational output
  -v, --verbose        log requests and responses
      --version        print version
  -h, --help           print this help

Use -- to end flag parsing when the query itself starts with a dash:
  duckchat -- what is -5 plus 3

Examples:
  duckchat what is the capital of France
  duckchat -m claude3 -s trip where should I stay in Lisbon
  duckchat -c and what about Porto
  duckchat sessions
  duckchat config set default_model mixtral
`
}
