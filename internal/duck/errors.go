// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package duck

import (
	"errors"
	"fmt"
)

// ErrEmptyStream indicates the response stream ended without producing a
// single text fragment or a terminal sentinel. The turn is aborted and
// nothing is persisted.
var ErrEmptyStream = errors.New("stream ended without any content")

// TransportError wraps a connection or I/O failure during a turn. It is
// fatal for the turn; nothing is persisted. Context deadline expiry and
// cancellation surface here as well.
type TransportError struct {
	Op  string // "status" or "chat"
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s request: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// TokenAcquisitionError indicates the backend did not supply a usable
// continuation token in the expected response header.
type TokenAcquisitionError struct {
	Op     string // "status" or "chat"
	Reason string
}

// Error implements the error interface.
func (e *TokenAcquisitionError) Error() string {
	return fmt.Sprintf("could not acquire continuation token from %s response: %s", e.Op, e.Reason)
}

// ProtocolDecodeError indicates a frame payload did not match the expected
// event schema. The raw payload is retained for diagnostics.
type ProtocolDecodeError struct {
	Payload []byte
	Err     error
}

// Error implements the error interface.
func (e *ProtocolDecodeError) Error() string {
	return fmt.Sprintf("undecodable stream event: %v (payload: %s)", e.Err, e.Payload)
}

// Unwrap returns the underlying decode error.
func (e *ProtocolDecodeError) Unwrap() error {
	return e.Err
}
