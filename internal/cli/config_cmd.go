// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/duckchat/internal/config"
)

// RunConfig implements the config subcommand: "config" or "config show"
// prints the current settings, "config set KEY VALUE" updates one.
func RunConfig(out io.Writer, cfg *config.Config, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
		fmt.Fprintln(out, TitleStyle.Render("Configuration"))
		for _, key := range config.Keys() {
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = %s\n", LabelStyle.Render(key), value)
		}
		return nil

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: duckchat config set KEY VALUE")
		}
		key, value := args[1], args[2]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %s\n", key, value)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (try show or set)", sub)
	}
}
