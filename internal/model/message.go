// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case "":
		return "Unknown"
	default:
		// Casers are stateful; build one per call.
		return cases.Title(language.English).String(string(r))
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat message.
//
// Message is a value: updates produce a new Message. Once IsStreaming is
// false the content never changes again.
type Message struct {
	ID          string
	Role        Role
	Content     string
	IsStreaming bool
	Timestamp   time.Time
}

// NewMessage creates a finished message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewStreamingAssistant creates the empty placeholder a reply streams into.
// id is the stream identity; pass "" to generate one.
func NewStreamingAssistant(id string) Message {
	if id == "" {
		id = uuid.NewString()
	}
	return Message{
		ID:          id,
		Role:        RoleAssistant,
		IsStreaming: true,
		Timestamp:   time.Now(),
	}
}

// WithDelta returns a copy with delta appended. Finished messages are
// returned unchanged.
func (m Message) WithDelta(delta string) Message {
	if !m.IsStreaming {
		return m
	}
	m.Content += delta
	return m
}

// Finalized returns a copy with IsStreaming cleared.
func (m Message) Finalized() Message {
	m.IsStreaming = false
	return m
}

// Preview returns a single-line, truncated view of the content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.SingleLine(m.Content), maxLen)
}

// Wire converts the message to the /api/chat request format.
func (m Message) Wire() ollama.Message {
	return ollama.Message{Role: string(m.Role), Content: m.Content}
}
