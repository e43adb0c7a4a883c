// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// duckchat is a command line client for DuckDuckGo's AI chat. Replies stream
// to stdout as they arrive; everything informational goes to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jeranaias/duckchat/internal/chat"
	"github.com/jeranaias/duckchat/internal/cli"
	"github.com/jeranaias/duckchat/internal/config"
	"github.com/jeranaias/duckchat/internal/duck"
	"github.com/jeranaias/duckchat/internal/model"
	"github.com/jeranaias/duckchat/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	inv, err := cli.Parse(args)
	if err != nil {
		return err
	}

	switch inv.Command {
	case cli.CmdHelp:
		fmt.Print(cli.Usage())
		return nil
	case cli.CmdVersion:
		fmt.Printf("duckchat %s\n", cli.Version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sessionsDir, err := config.SessionsDir()
	if err != nil {
		return err
	}
	store := storage.NewStore(sessionsDir)

	switch inv.Command {
	case cli.CmdSessions:
		return cli.RunSessions(os.Stdout, store)
	case cli.CmdConfig:
		return cli.RunConfig(os.Stdout, cfg, inv.ConfigArgs)
	}

	modelName := inv.Model
	if modelName == "" {
		modelName = cfg.DefaultModel
	}
	m, err := model.Resolve(modelName)
	if err != nil {
		return err
	}

	client := duck.NewClient(
		duck.WithBaseURL(cfg.BaseURL),
		duck.WithUserAgent(cfg.UserAgent),
		duck.WithTimeout(time.Duration(cfg.RequestTimeoutSecs)*time.Second),
		duck.WithVerbose(inv.Verbose),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !inv.Quiet && cli.IsStderrTTY() {
		banner := fmt.Sprintf("Using model: %s (%s)", m.Name(), m)
		fmt.Fprintln(os.Stderr, cli.DimStyle.Render(banner))
	}

	runner := &chat.Runner{
		Client: client,
		Store:  store,
		OnFragment: func(fragment string) {
			fmt.Print(fragment)
		},
	}
	sel := chat.Selector{Name: inv.Session, Continue: inv.Continue}

	if inv.Interactive {
		return chat.Interactive(ctx, runner, sel, m, os.Stdout, os.Stderr)
	}

	outcome, err := runner.Run(ctx, sel, m, inv.Query)
	if err != nil {
		return err
	}
	fmt.Println()

	// Anything the backend tacked onto the end-of-stream marker is shown
	// dimmed on stderr, away from the reply.
	if !inv.Quiet && outcome.Diagnostic != "" {
		if extra := strings.TrimSpace(strings.TrimPrefix(outcome.Diagnostic, "[DONE]")); extra != "" {
			fmt.Fprintln(os.Stderr, cli.DimStyle.Render(extra))
		}
	}
	return nil
}
