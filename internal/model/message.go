// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jeranaias/chatsync-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
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
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MODE TYPE
// =============================================================================

// Mode is the conversation mode. It affects backend routing and how the
// UI decorates a chat.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeNews    Mode = "news"
	ModeLaw     Mode = "law"
)

// Valid reports whether the mode is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDefault, ModeNews, ModeLaw:
		return true
	}
	return false
}

// OrDefault returns the mode, or ModeDefault if it is empty or unknown.
func (m Mode) OrDefault() Mode {
	if m.Valid() {
		return m
	}
	return ModeDefault
}

// =============================================================================
// PROVISIONAL STATUS
// =============================================================================

// Status marks a locally synthesized message that has not been confirmed
// by the backend. Authoritative messages carry StatusNone. The status is
// an explicit field rather than an id prefix, so server-issued ids can
// never be mistaken for provisional artifacts.
type Status string

const (
	// StatusNone marks an authoritative, backend-confirmed message.
	StatusNone Status = ""

	// StatusTemporary marks an optimistic local insert awaiting confirmation.
	StatusTemporary Status = "temporary"

	// StatusStreaming marks the assistant reply under construction while
	// chunk events arrive.
	StatusStreaming Status = "streaming"

	// StatusError marks a locally synthesized assistant error bubble.
	StatusError Status = "error"
)

// Provisional reports whether the status marks any locally synthesized
// message. All provisional messages are removed when the authoritative
// user/assistant pair arrives.
func (s Status) Provisional() bool {
	return s != StatusNone
}

// =============================================================================
// MESSAGE VERSION
// =============================================================================

// MessageVersion is one revision of a message's content. Edits append
// versions; CurrentVersionIndex selects the visible one.
type MessageVersion struct {
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// IsError flags a locally synthesized failure message. The backend
	// never produces error versions.
	IsError bool `json:"isError,omitempty"`
}

// Source is a citation attached to an assistant message.
type Source struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	Lines       string  `json:"lines,omitempty"`
	PublishedAt string  `json:"publishedAt,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
	FinalScore  float64 `json:"finalScore,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single message in a chat session. Field tags follow the
// backend wire format; Status is local-only and never sent by the server.
type Message struct {
	ID     string `json:"_id"`
	ChatID string `json:"chatId"`
	UserID string `json:"userId,omitempty"`
	Role   Role   `json:"role"`
	Mode   Mode   `json:"mode,omitempty"`

	Versions            []MessageVersion `json:"versions"`
	CurrentVersionIndex int              `json:"currentVersionIndex"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sources []Source `json:"sources,omitempty"`

	Status Status `json:"status,omitempty"`
}

// NewUserMessage creates an optimistic local user message awaiting
// backend confirmation.
func NewUserMessage(chatID, content string, mode Mode) Message {
	now := time.Now()
	return Message{
		ID:     generateMessageID(),
		ChatID: chatID,
		Role:   RoleUser,
		Mode:   mode.OrDefault(),
		Versions: []MessageVersion{
			{Content: content, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusTemporary,
	}
}

// NewErrorMessage creates a locally synthesized assistant error bubble
// carrying a human-readable reason.
func NewErrorMessage(chatID, reason string, mode Mode) Message {
	now := time.Now()
	return Message{
		ID:     generateMessageID(),
		ChatID: chatID,
		Role:   RoleAssistant,
		Mode:   mode.OrDefault(),
		Versions: []MessageVersion{
			{Content: reason, CreatedAt: now, IsError: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusError,
	}
}

// NewStreamingMessage creates the streaming placeholder that holds
// partially arrived assistant content until the completed event replaces it.
func NewStreamingMessage(chatID, content string, mode Mode) Message {
	now := time.Now()
	return Message{
		ID:     generateMessageID(),
		ChatID: chatID,
		Role:   RoleAssistant,
		Mode:   mode.OrDefault(),
		Versions: []MessageVersion{
			{Content: content, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusStreaming,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// CurrentVersion returns the visible version. The index is clamped so a
// malformed payload can never panic the caller.
func (m *Message) CurrentVersion() MessageVersion {
	if len(m.Versions) == 0 {
		return MessageVersion{}
	}
	idx := m.CurrentVersionIndex
	if idx < 0 || idx >= len(m.Versions) {
		idx = 0
	}
	return m.Versions[idx]
}

// Content returns the visible version's content.
func (m *Message) Content() string {
	return m.CurrentVersion().Content
}

// IsErrorBubble reports whether the message is an assistant error bubble,
// checking both the provisional status and the version flag so that
// cached entries from older builds are still recognized.
func (m *Message) IsErrorBubble() bool {
	if m.Role != RoleAssistant {
		return false
	}
	return m.Status == StatusError || m.CurrentVersion().IsError
}

// Preview returns a single-line truncated preview of the visible content.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.Flatten(m.Content()), maxLen)
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() Message {
	clone := *m
	clone.Versions = append([]MessageVersion(nil), m.Versions...)
	if m.Sources != nil {
		clone.Sources = append([]Source(nil), m.Sources...)
	}
	return clone
}

// EnsureMode fills in the mode from a fallback when the backend omits it.
func (m *Message) EnsureMode(fallback Mode) {
	if !m.Mode.Valid() {
		m.Mode = fallback.OrDefault()
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique local message ID.
func generateMessageID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
