// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package duck

import (
	"bytes"
	"encoding/json"
)

const (
	// framePrefix marks a frame as carrying an event payload. Frames
	// without it (keep-alives, blank lines) are ignored.
	framePrefix = "data: "

	// terminalSentinel ends the stream. The backend sometimes appends
	// diagnostic text after it, so it is matched as a prefix.
	terminalSentinel = "[DONE]"
)

// EventKind classifies a decoded stream event.
type EventKind int

const (
	// EventIgnored carries nothing of interest for the turn.
	EventIgnored EventKind = iota
	// EventTextFragment carries a piece of the assistant's reply.
	EventTextFragment
	// EventTerminal marks the end of the stream.
	EventTerminal
)

// StreamEvent is one decoded frame of a chat response stream.
type StreamEvent struct {
	Kind     EventKind
	Fragment string
	// Diagnostic holds the full terminal payload, including anything the
	// backend appended after the sentinel. Informational only.
	Diagnostic string
}

// chatEvent is the JSON schema of a non-terminal event payload. Message is a
// pointer because events without one (status updates, role announcements)
// are valid and simply carry no text.
type chatEvent struct {
	Action  string  `json:"action"`
	Created int64   `json:"created"`
	Message *string `json:"message,omitempty"`
	ID      *string `json:"id,omitempty"`
	Model   *string `json:"model,omitempty"`
	Role    *string `json:"role,omitempty"`
}

// DecodeFrame interprets one complete frame. Frames without the payload
// prefix are ignored; a payload starting with the terminal sentinel ends the
// stream; anything else must decode as a chat event or the whole turn fails
// with a ProtocolDecodeError.
func DecodeFrame(frame []byte) (StreamEvent, error) {
	if !bytes.HasPrefix(frame, []byte(framePrefix)) {
		return StreamEvent{Kind: EventIgnored}, nil
	}

	payload := frame[len(framePrefix):]
	if bytes.HasPrefix(payload, []byte(terminalSentinel)) {
		return StreamEvent{Kind: EventTerminal, Diagnostic: string(payload)}, nil
	}

	var ev chatEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		raw := make([]byte, len(payload))
		copy(raw, payload)
		return StreamEvent{}, &ProtocolDecodeError{Payload: raw, Err: err}
	}

	if ev.Message == nil {
		return StreamEvent{Kind: EventIgnored}, nil
	}
	return StreamEvent{Kind: EventTextFragment, Fragment: *ev.Message}, nil
}
