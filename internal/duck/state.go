// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package duck

import (
	"github.com/jeranaias/duckchat/internal/model"
)

// Role identifies the author of a conversation message.
type Role string

// Roles the backend understands.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry, persisted and sent on the wire
// in the same shape.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage builds a user-authored message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an assistant-authored message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ConversationState is everything needed to continue a conversation: the
// model, the full message history, and the continuation token issued by the
// backend on the previous turn. An empty token means the next turn must
// acquire a fresh one before sending.
type ConversationState struct {
	Model             model.Model `json:"model"`
	Messages          []Message   `json:"messages"`
	ContinuationToken string      `json:"continuation_token"`
}

// NewConversationState starts an empty conversation for a model.
func NewConversationState(m model.Model) *ConversationState {
	return &ConversationState{Model: m}
}

// Append adds a message to the history.
func (s *ConversationState) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// chatRequest is the JSON body of a chat POST. The continuation token rides
// in a header, not the body.
type chatRequest struct {
	Model    model.Model `json:"model"`
	Messages []Message   `json:"messages"`
}
