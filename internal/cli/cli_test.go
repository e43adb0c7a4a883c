// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/duckchat/internal/duck"
	"github.com/jeranaias/duckchat/internal/model"
	"github.com/jeranaias/duckchat/internal/storage"
)

func TestParse_PlainQuery(t *testing.T) {
	inv, err := Parse([]string{"what", "is", "the", "capital", "of", "France"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if inv.Command != CmdChat {
		t.Errorf("command = %d, want CmdChat", inv.Command)
	}
	if inv.Query != "what is the capital of France" {
		t.Errorf("query = %q", inv.Query)
	}
}

func TestParse_Flags(t *testing.T) {
	inv, err := Parse([]string{"-m", "claude3", "-s", "trip", "where", "to", "stay"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if inv.Model != "claude3" {
		t.Errorf("model = %q, want claude3", inv.Model)
	}
	if inv.Session != "trip" {
		t.Errorf("session = %q, want trip", inv.Session)
	}
	if inv.Query != "where to stay" {
		t.Errorf("query = %q, want 'where to stay'", inv.Query)
	}
}

func TestParse_LongFlagsWithEquals(t *testing.T) {
	inv, err := Parse([]string{"--model=mixtral", "--session=work", "hello"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if inv.Model != "mixtral" || inv.Session != "work" {
		t.Errorf("model = %q session = %q", inv.Model, inv.Session)
	}
}

func TestParse_BoolFlagDoesNotEatQuery(t *testing.T) {
	inv, err := Parse([]string{"-c", "tell", "me", "more"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !inv.Continue {
		t.Error("continue flag not set")
	}
	if inv.Query != "tell me more" {
		t.Errorf("query = %q, want 'tell me more'", inv.Query)
	}
}

func TestParse_DashDashEndsFlagParsing(t *testing.T) {
	inv, err := Parse([]string{"-m", "claude3", "--", "what", "is", "-5", "plus", "3"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if inv.Model != "claude3" {
		t.Errorf("model = %q, want claude3", inv.Model)
	}
	if inv.Query != "what is -5 plus 3" {
		t.Errorf("query = %q, want 'what is -5 plus 3'", inv.Query)
	}
}

func TestParse_InteractiveNeedsNoQuery(t *testing.T) {
	inv, err := Parse([]string{"-i"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !inv.Interactive {
		t.Error("interactive flag not set")
	}
}

func TestParse_EmptyIsAnError(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Error("expected error for empty command line")
	}
}

func TestParse_HelpAndVersion(t *testing.T) {
	inv, err := Parse([]string{"--help"})
	if err != nil || inv.Command != CmdHelp {
		t.Errorf("help: command = %d, err = %v", inv.Command, err)
	}
	inv, err = Parse([]string{"--version"})
	if err != nil || inv.Command != CmdVersion {
		t.Errorf("version: command = %d, err = %v", inv.Command, err)
	}
}

func TestParse_Subcommands(t *testing.T) {
	inv, err := Parse([]string{"sessions"})
	if err != nil || inv.Command != CmdSessions {
		t.Errorf("sessions: command = %d, err = %v", inv.Command, err)
	}

	inv, err = Parse([]string{"config", "set", "default_model", "llama3"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if inv.Command != CmdConfig {
		t.Errorf("command = %d, want CmdConfig", inv.Command)
	}
	if len(inv.ConfigArgs) != 3 || inv.ConfigArgs[0] != "set" {
		t.Errorf("config args = %q", inv.ConfigArgs)
	}
}

func TestRunSessions_Empty(t *testing.T) {
	store := storage.NewStore(t.TempDir())

	var buf bytes.Buffer
	if err := RunSessions(&buf, store); err != nil {
		t.Fatalf("RunSessions failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No stored sessions") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunSessions_ListsMostRecentFirst(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewStore(dir)

	for _, name := range []string{"alpha", "beta"} {
		state := duck.NewConversationState(model.GPT4oMini)
		state.Append(duck.NewUserMessage("query for " + name))
		if err := store.Save(name, state); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	base := time.Now().Add(-time.Hour)
	os.Chtimes(filepath.Join(dir, "alpha.json"), base, base)
	os.Chtimes(filepath.Join(dir, "beta.json"), base.Add(time.Minute), base.Add(time.Minute))

	var buf bytes.Buffer
	if err := RunSessions(&buf, store); err != nil {
		t.Fatalf("RunSessions failed: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "beta") > strings.Index(out, "alpha") {
		t.Errorf("beta should list before alpha:\n%s", out)
	}
	if !strings.Contains(out, "query for alpha") {
		t.Errorf("missing preview:\n%s", out)
	}
}
