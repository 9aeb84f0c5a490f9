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
// CHAT SESSION TYPE
// =============================================================================

// ChatSession is one conversation thread. A session created locally on
// "new chat" is temporary until the backend confirms it and the engine
// promotes its key to the server-issued chat id.
type ChatSession struct {
	ChatID      string    `json:"chatId"`
	Title       string    `json:"title,omitempty"`
	Messages    []Message `json:"messages"`
	IsTemporary bool      `json:"isTemporary,omitempty"`
	Mode        Mode      `json:"mode,omitempty"`
}

// NewTemporarySession creates a local session awaiting backend promotion.
func NewTemporarySession(mode Mode) *ChatSession {
	return &ChatSession{
		ChatID:      generateChatID(),
		Messages:    []Message{},
		IsTemporary: true,
		Mode:        mode.OrDefault(),
	}
}

// =============================================================================
// SESSION METHODS
// =============================================================================

// Clone returns a deep copy of the session.
func (c *ChatSession) Clone() *ChatSession {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	for i := range c.Messages {
		clone.Messages[i] = c.Messages[i].Clone()
	}
	return &clone
}

// FindMessage returns the index of the message with the given id, or -1.
func (c *ChatSession) FindMessage(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// FindStreaming returns the index of the streaming placeholder, or -1.
// At most one placeholder exists per session at a time.
func (c *ChatSession) FindStreaming() int {
	for i := range c.Messages {
		if c.Messages[i].Status == StatusStreaming {
			return i
		}
	}
	return -1
}

// WithoutProvisional returns a new message slice with every provisional
// message removed: optimistic inserts, streaming placeholders, and error
// bubbles. Stale local artifacts must never coexist with the
// authoritative user/assistant pair.
func (c *ChatSession) WithoutProvisional() []Message {
	kept := make([]Message, 0, len(c.Messages))
	for i := range c.Messages {
		m := &c.Messages[i]
		if m.Status.Provisional() || m.IsErrorBubble() {
			continue
		}
		kept = append(kept, *m)
	}
	return kept
}

// WithoutErrorBubbles returns a new message slice with assistant error
// bubbles removed. A previous failed turn must not be shown as part of a
// new attempt.
func (c *ChatSession) WithoutErrorBubbles() []Message {
	kept := make([]Message, 0, len(c.Messages))
	for i := range c.Messages {
		if c.Messages[i].IsErrorBubble() {
			continue
		}
		kept = append(kept, c.Messages[i])
	}
	return kept
}

// WithoutTemporary returns a new message slice with optimistic local
// inserts removed.
func (c *ChatSession) WithoutTemporary() []Message {
	kept := make([]Message, 0, len(c.Messages))
	for i := range c.Messages {
		if c.Messages[i].Status == StatusTemporary {
			continue
		}
		kept = append(kept, c.Messages[i])
	}
	return kept
}

// LastMessage returns the most recent message, or nil if empty.
func (c *ChatSession) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// Preview returns a short single-line preview of the session.
func (c *ChatSession) Preview(maxLen int) string {
	last := c.LastMessage()
	if last == nil {
		return ""
	}
	return last.Preview(maxLen)
}

// DisplayTitle returns the title or a default for untitled sessions.
func (c *ChatSession) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Chat"
}

// =============================================================================
// CHAT LIST ITEM
// =============================================================================

// ChatListItem is the lightweight chat descriptor used for navigation.
type ChatListItem struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	LastMessage   string    `json:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
	Mode          Mode      `json:"mode,omitempty"`
}

// PreviewLine returns a truncated single-line preview for list rendering.
func (i ChatListItem) PreviewLine(maxLen int) string {
	return util.TruncateRunes(util.Flatten(i.LastMessage), maxLen)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateChatID creates a unique local chat ID.
func generateChatID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "chat_" + hex.EncodeToString(bytes)
}
