// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/chatsync-tui/internal/model"
)

// =============================================================================
// CHAT CRUD
// =============================================================================

// createChatRequest is the body for chat creation.
type createChatRequest struct {
	Title string     `json:"title,omitempty"`
	Mode  model.Mode `json:"mode,omitempty"`
}

// renameChatRequest is the body for chat renames.
type renameChatRequest struct {
	Title string `json:"title"`
}

// CreateChat creates an empty chat on the backend and returns its
// server-issued listing entry.
func (c *Client) CreateChat(ctx context.Context, title string, mode model.Mode) (*model.ChatListItem, error) {
	var item model.ChatListItem
	err := c.do(ctx, c.crud(), http.MethodPost, "/api/chats",
		createChatRequest{Title: title, Mode: mode.OrDefault()}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListChats returns the chat history listing, newest first as ordered by
// the backend.
func (c *Client) ListChats(ctx context.Context) ([]model.ChatListItem, error) {
	var items []model.ChatListItem
	if err := c.do(ctx, c.crud(), http.MethodGet, "/api/chats", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RenameChat updates a chat's title.
func (c *Client) RenameChat(ctx context.Context, chatID, title string) error {
	return c.do(ctx, c.crud(), http.MethodPatch, "/api/chats/"+url.PathEscape(chatID),
		renameChatRequest{Title: title}, nil)
}

// DeleteChat removes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, c.crud(), http.MethodDelete, "/api/chats/"+url.PathEscape(chatID), nil, nil)
}

// GetMessages returns the persisted messages of one chat, oldest first.
func (c *Client) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	var messages []model.Message
	err := c.do(ctx, c.crud(), http.MethodGet,
		"/api/chats/"+url.PathEscape(chatID)+"/messages", nil, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
