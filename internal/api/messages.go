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
// GENERATION ENDPOINTS
// =============================================================================

// createMessageRequest is the body for HTTP message creation.
type createMessageRequest struct {
	Content string     `json:"content"`
	Mode    model.Mode `json:"mode,omitempty"`
}

// editMessageRequest is the body for message edits.
type editMessageRequest struct {
	Content string `json:"content"`
}

// TurnResult is the outcome of one full model turn run over HTTP.
type TurnResult struct {
	ChatID           string         `json:"chatId"`
	UserMessage      *model.Message `json:"userMessage"`
	AssistantMessage *model.Message `json:"assistantMessage"`
	IsFirstMessage   bool           `json:"isFirstMessage"`
	Title            string         `json:"title,omitempty"`
}

// EditResult is the outcome of regenerating a turn from an edited
// user message.
type EditResult struct {
	EditedUserMessage   *model.Message `json:"editedUserMessage"`
	NewAssistantMessage *model.Message `json:"newAssistantMessage"`
	Sources             []model.Source `json:"sources,omitempty"`
}

// SearchResult is one standalone search answer.
type SearchResult struct {
	Answer  string         `json:"answer"`
	Sources []model.Source `json:"sources,omitempty"`
}

// searchRequest is the body for standalone searches.
type searchRequest struct {
	Query string     `json:"query"`
	Mode  model.Mode `json:"mode,omitempty"`
}

// CreateMessage runs one turn in a brand-new chat over HTTP. This is the
// non-realtime fallback: the request blocks for the whole generation.
func (c *Client) CreateMessage(ctx context.Context, content string, mode model.Mode) (*TurnResult, error) {
	var result TurnResult
	err := c.do(ctx, c.generation(), http.MethodPost, "/api/messages",
		createMessageRequest{Content: content, Mode: mode.OrDefault()}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateMessageIn runs one turn in an existing chat over HTTP.
func (c *Client) CreateMessageIn(ctx context.Context, chatID, content string, mode model.Mode) (*TurnResult, error) {
	var result TurnResult
	err := c.do(ctx, c.generation(), http.MethodPost,
		"/api/chats/"+url.PathEscape(chatID)+"/messages",
		createMessageRequest{Content: content, Mode: mode.OrDefault()}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// EditMessage rewrites a user message and regenerates the assistant
// reply that followed it. The backend appends new versions to both
// messages rather than replacing them.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID, content string) (*EditResult, error) {
	var result EditResult
	err := c.do(ctx, c.generation(), http.MethodPut,
		"/api/chats/"+url.PathEscape(chatID)+"/messages/"+url.PathEscape(messageID),
		editMessageRequest{Content: content}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Search runs a standalone search outside any chat.
func (c *Client) Search(ctx context.Context, query string, mode model.Mode) (*SearchResult, error) {
	var result SearchResult
	err := c.do(ctx, c.generation(), http.MethodPost, "/api/search",
		searchRequest{Query: query, Mode: mode.OrDefault()}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
