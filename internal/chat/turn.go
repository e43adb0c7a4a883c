// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives conversational turns: it resolves which session to
// use, runs the request/stream cycle against the backend, and persists the
// result only when the turn completed.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jeranaias/duckchat/internal/duck"
	"github.com/jeranaias/duckchat/internal/model"
	"github.com/jeranaias/duckchat/internal/storage"
)

// State tracks a turn through its lifecycle. Transitions only ever move
// forward; a turn that aborts never becomes complete.
type State int

const (
	// StateNew is a turn that has not started.
	StateNew State = iota
	// StateTokenPending is acquiring a continuation token.
	StateTokenPending
	// StateStreaming is consuming the response stream.
	StateStreaming
	// StateComplete received a full reply; the session was persisted.
	StateComplete
	// StateAborted failed partway; nothing was persisted.
	StateAborted
)

// String returns the state name for logs and tests.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateTokenPending:
		return "token-pending"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Selector names the session a turn should use. An empty Name with Continue
// set picks the most recently used session; an empty Name without Continue
// starts a fresh session under a generated name.
type Selector struct {
	Name     string
	Continue bool
}

// Outcome reports how a turn ended.
type Outcome struct {
	State      State
	Reply      string
	Session    string
	Diagnostic string
}

// Runner executes turns.
type Runner struct {
	Client *duck.Client
	Store  *storage.Store
	// OnFragment receives reply text as it streams in. May be nil.
	OnFragment func(fragment string)
}

// Run executes one turn: select the session, acquire a token if needed,
// stream the reply, and persist the updated session. On any failure the
// stored session is left exactly as it was before the turn.
func (r *Runner) Run(ctx context.Context, sel Selector, m model.Model, query string) (*Outcome, error) {
	outcome := &Outcome{State: StateNew}

	// Reject bad names before doing any network or disk work.
	if sel.Name != "" {
		if err := storage.ValidateName(sel.Name); err != nil {
			outcome.State = StateAborted
			return outcome, err
		}
	}

	state, name, err := r.selectSession(sel, m)
	if err != nil {
		outcome.State = StateAborted
		return outcome, err
	}
	outcome.Session = name

	state.Append(duck.NewUserMessage(query))

	outcome.State = StateTokenPending
	token, err := r.Client.EnsureToken(ctx, state.ContinuationToken)
	if err != nil {
		outcome.State = StateAborted
		return outcome, err
	}
	state.ContinuationToken = token

	outcome.State = StateStreaming
	result, err := r.Client.Stream(ctx, state, r.OnFragment)
	if err != nil {
		outcome.State = StateAborted
		return outcome, err
	}

	state.ContinuationToken = result.NextToken
	state.Append(duck.NewAssistantMessage(result.Reply))

	if err := r.Store.Save(name, state); err != nil {
		outcome.State = StateAborted
		return outcome, err
	}

	outcome.State = StateComplete
	outcome.Reply = result.Reply
	outcome.Diagnostic = result.Diagnostic
	return outcome, nil
}

// selectSession loads or creates the conversation the turn operates on.
func (r *Runner) selectSession(sel Selector, m model.Model) (*duck.ConversationState, string, error) {
	switch {
	case sel.Name != "":
		// A named session that does not exist yet starts empty under
		// that name, with or without -c.
		state, err := r.Store.Load(sel.Name)
		if errors.Is(err, storage.ErrSessionNotFound) {
			return duck.NewConversationState(m), sel.Name, nil
		}
		if err != nil {
			return nil, "", err
		}
		return state, sel.Name, nil

	case sel.Continue:
		state, name, err := r.Store.LoadLatest()
		if errors.Is(err, storage.ErrSessionNotFound) {
			// Nothing to continue: start fresh rather than fail.
			return duck.NewConversationState(m), generateSessionName(), nil
		}
		if err != nil {
			return nil, "", err
		}
		return state, name, nil

	default:
		return duck.NewConversationState(m), generateSessionName(), nil
	}
}

// generateSessionName returns a unique name for an unnamed session.
func generateSessionName() string {
	return "sess_" + uuid.NewString()
}
