// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/duckchat/internal/storage"
)

// RunSessions prints the stored sessions, most recent first.
func RunSessions(out io.Writer, store *storage.Store) error {
	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Fprintln(out, "No stored sessions.")
		return nil
	}

	fmt.Fprintln(out, TitleStyle.Render("Sessions"))
	for _, meta := range metas {
		line := fmt.Sprintf("%s  %s  %d messages",
			meta.Name,
			meta.ModTime.Format("2006-01-02 15:04"),
			meta.MessageCount,
		)
		fmt.Fprintln(out, line)
		if meta.Preview != "" {
			fmt.Fprintln(out, LabelStyle.Render("  "+meta.Preview))
		}
	}
	return nil
}
