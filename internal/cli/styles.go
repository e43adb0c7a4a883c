// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for the duckchat CLI.
//
// Informational output (model banner, stream diagnostics, listings) goes to
// stderr so the reply on stdout stays clean for piping.

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

var (
	// DimStyle renders informational chatter: the model banner and any
	// diagnostic text the backend appends to the end of a stream.
	DimStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("245"))

	// TitleStyle renders listing headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// LabelStyle renders field labels in listings.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// ErrorStyle renders fatal errors.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)
