// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/duckchat/internal/model"
)

// Interactive runs a read-eval loop: each line is one turn against the same
// session. The first turn establishes the session (named, continued, or
// freshly generated); later turns continue it. Ctrl-D or an empty prompt
// abort cleanly. A failed turn reports its error and keeps the loop alive,
// since nothing was persisted for it.
func Interactive(ctx context.Context, runner *Runner, sel Selector, m model.Model, out, errOut io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		input, err := line.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		query := strings.TrimSpace(input)
		if query == "" {
			continue
		}
		line.AppendHistory(input)

		outcome, err := runner.Run(ctx, sel, m, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}

		// Fragments were streamed without a trailing newline.
		fmt.Fprintln(out)

		// Later turns continue whatever session the first one used.
		sel = Selector{Name: outcome.Session, Continue: true}
	}
}
