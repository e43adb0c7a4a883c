// args.go - Argument parsing for the duckchat CLI.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser handles the flag formats used by the duckchat CLI:
//
//	--flag value     Long flag with space-separated value
//	--flag=value     Long flag with equals sign
//	-f value         Short flag with space-separated value
//	--flag           Boolean flag (no value)
//	word word ...    Positional arguments (the query)
//	--               Terminator: everything after it is positional
//
// Flags known to be boolean never consume the following argument, so
// "duckchat -c tell me more" parses "tell me more" as the query rather
// than treating "tell" as the value of -c.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser parses raw arguments. boolNames lists every spelling (short
// and long) of the flags that take no value.
func NewArgParser(raw []string, boolNames map[string]bool) *ArgParser {
	parser := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		raw:       raw,
	}

	i := 0
	for i < len(raw) {
		arg := raw[i]

		// "--" ends flag parsing so queries may contain dash words.
		if arg == "--" {
			parser.positional = append(parser.positional, raw[i+1:]...)
			break
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			parser.positional = append(parser.positional, arg)
			i++
			continue
		}

		// --flag=value form
		if name, value, found := strings.Cut(arg, "="); found {
			name = strings.TrimLeft(name, "-")
			if value == "true" || value == "false" {
				parser.boolFlags[name] = value == "true"
			} else {
				parser.flags[name] = value
			}
			i++
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if !boolNames[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			parser.flags[name] = raw[i+1]
			i += 2
			continue
		}

		parser.boolFlags[name] = true
		i++
	}

	return parser
}

// Flag returns a string flag's value under any of its spellings, or "".
func (p *ArgParser) Flag(names ...string) string {
	for _, name := range names {
		if val, ok := p.flags[strings.TrimLeft(name, "-")]; ok {
			return val
		}
	}
	return ""
}

// BoolFlag reports whether a boolean flag was given under any spelling.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, name := range names {
		if val, ok := p.boolFlags[strings.TrimLeft(name, "-")]; ok && val {
			return true
		}
	}
	return false
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns all positional arguments starting at index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}
