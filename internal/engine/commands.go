// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"log"
	"strings"

	"github.com/jeranaias/chatsync-tui/internal/api"
	"github.com/jeranaias/chatsync-tui/internal/model"
	"github.com/jeranaias/chatsync-tui/internal/transport"
)

// =============================================================================
// CHAT COMMANDS
// =============================================================================

// CreateTempChat inserts a new temporary session using the current mode
// preference and points the current-chat pointer at it. It never touches
// the backend. Returns the temporary chat id.
func (e *Engine) CreateTempChat() string {
	e.mu.Lock()
	id := e.createTempChatLocked()
	e.mu.Unlock()
	e.notify()
	return id
}

// createTempChatLocked enforces the at-most-one-temporary invariant:
// any existing temporary session is dropped before the new one goes in.
func (e *Engine) createTempChatLocked() string {
	for id, session := range e.chats {
		if session.IsTemporary {
			delete(e.chats, id)
			if e.currentChatID == id {
				e.currentChatID = ""
			}
		}
	}
	session := model.NewTemporarySession(e.mode)
	e.chats[session.ChatID] = session
	e.currentChatID = session.ChatID
	return session.ChatID
}

// SetCurrentChat moves the current-chat pointer.
func (e *Engine) SetCurrentChat(chatID string) {
	e.mu.Lock()
	e.currentChatID = chatID
	e.mu.Unlock()
	e.notify()
}

// RenameChat updates a chat title on the backend, then mirrors the
// change locally. On failure prior state is left untouched and only the
// dismissible engine error is set.
func (e *Engine) RenameChat(ctx context.Context, chatID, title string) error {
	if err := e.backend.RenameChat(ctx, chatID, title); err != nil {
		e.setError(err.Error())
		return err
	}

	e.mu.Lock()
	if session, ok := e.chats[chatID]; ok {
		session.Title = title
	}
	for i := range e.history {
		if e.history[i].ID == chatID {
			e.history[i].Title = title
		}
	}
	e.persistLocked()
	e.mu.Unlock()
	e.notify()
	return nil
}

// DeleteChat removes a chat. Temporary sessions are dropped locally
// without a backend call; confirmed chats are deleted server-side first.
// Deleting the active chat clears the current-chat pointer.
func (e *Engine) DeleteChat(ctx context.Context, chatID string) error {
	e.mu.Lock()
	session, ok := e.chats[chatID]
	temporary := ok && session.IsTemporary
	e.mu.Unlock()

	if !ok {
		return ErrChatNotFound
	}
	if !temporary {
		if err := e.backend.DeleteChat(ctx, chatID); err != nil {
			e.setError(err.Error())
			return err
		}
	}

	e.mu.Lock()
	delete(e.chats, chatID)
	kept := e.history[:0]
	for _, item := range e.history {
		if item.ID != chatID {
			kept = append(kept, item)
		}
	}
	e.history = kept
	if e.currentChatID == chatID {
		e.currentChatID = ""
	}
	e.persistLocked()
	e.mu.Unlock()
	e.notify()
	return nil
}

// LoadChat fetches a chat's messages from the backend and replaces the
// session's message list. On failure the engine error is set and an
// inline assistant error bubble carrying the reason is appended, so the
// user sees the failure in context.
func (e *Engine) LoadChat(ctx context.Context, chatID string) error {
	messages, err := e.backend.GetMessages(ctx, chatID)
	if err != nil {
		e.mu.Lock()
		e.lastError = err.Error()
		session := e.sessionLocked(chatID)
		session.Messages = append(session.WithoutErrorBubbles(),
			model.NewErrorMessage(chatID, "Failed to load chat: "+err.Error(), session.Mode))
		e.mu.Unlock()
		e.notify()
		return err
	}

	e.mu.Lock()
	session := e.sessionLocked(chatID)
	for i := range messages {
		messages[i].EnsureMode(session.Mode.OrDefault())
	}
	session.Messages = messages
	session.IsTemporary = false
	e.persistLocked()
	e.mu.Unlock()
	e.notify()
	return nil
}

// RefreshHistory fetches the lightweight chat list. Calls are throttled;
// fetch failures are logged and swallowed so background refreshes never
// surface as user-facing errors.
func (e *Engine) RefreshHistory(ctx context.Context) {
	if !e.historyLimiter.Allow() {
		return
	}
	items, err := e.backend.ListChats(ctx)
	if err != nil {
		log.Printf("engine: history refresh failed: %v", err)
		return
	}

	e.mu.Lock()
	e.history = items
	e.hasHydrated = true
	e.mu.Unlock()
	e.notify()
}

// =============================================================================
// MESSAGE COMMANDS
// =============================================================================

// SendMessage runs one turn: optimistic insert, connect if needed, then
// a correlated create request over the realtime channel. An empty chatID
// targets a brand-new chat. Request-level failures (including timeouts)
// replace the optimistic insert with a single assistant error bubble.
func (e *Engine) SendMessage(ctx context.Context, chatID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	e.mu.Lock()
	if chatID == "" {
		chatID = e.createTempChatLocked()
	}
	session, ok := e.chats[chatID]
	if !ok {
		e.mu.Unlock()
		return ErrChatNotFound
	}

	// A previous failed turn must not be shown as part of this attempt.
	session.Messages = append(session.WithoutErrorBubbles(),
		model.NewUserMessage(chatID, content, session.Mode))

	mode := session.Mode.OrDefault()
	temporary := session.IsTemporary
	e.currentChatID = chatID
	e.messageProgress = make(map[string]model.Progress)
	e.isAssistantTyping = true
	e.assistantTypingMode = mode
	e.mu.Unlock()
	e.notify()

	// Connection failures abort before the backend is contacted.
	if err := e.rt.Connect(ctx); err != nil {
		e.failTurn(chatID, "Connection failed: "+err.Error(), true)
		return err
	}

	correlationID := transport.NewCorrelationID()
	e.mu.Lock()
	e.inFlight[correlationID] = true
	e.mu.Unlock()

	req := transport.CreateMessageRequest{
		Content:       content,
		Mode:          mode,
		Streaming:     true,
		CorrelationID: correlationID,
	}
	if !temporary {
		req.ChatID = &chatID
	}

	if _, err := e.rt.SendCreate(ctx, req); err != nil {
		e.mu.Lock()
		delete(e.inFlight, correlationID)
		e.mu.Unlock()
		e.failTurn(chatID, err.Error(), false)
		return err
	}
	return nil
}

// failTurn converts a failed send into a single inline assistant error
// bubble, removing every optimistic artifact of the attempt.
func (e *Engine) failTurn(chatID, reason string, connectionError bool) {
	e.mu.Lock()
	if session, ok := e.chats[chatID]; ok {
		kept := make([]model.Message, 0, len(session.Messages))
		for i := range session.Messages {
			m := &session.Messages[i]
			if m.Status.Provisional() || m.IsErrorBubble() {
				continue
			}
			kept = append(kept, *m)
		}
		session.Messages = append(kept,
			model.NewErrorMessage(chatID, reason, session.Mode))
	}
	e.isAssistantTyping = false
	e.assistantTypingMode = ""
	e.messageProgress = make(map[string]model.Progress)
	e.streamingMessageID = ""
	e.streamingContent = ""
	e.lastError = reason
	if connectionError {
		e.wsError = true
	}
	e.mu.Unlock()
	e.notify()
}

// EditMessage rewrites a user message and regenerates the dependent
// assistant reply. There is no optimistic edit: on failure prior content
// is untouched and only the engine error is set.
func (e *Engine) EditMessage(ctx context.Context, messageID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	e.mu.Lock()
	chatID := ""
	for id, session := range e.chats {
		if session.FindMessage(messageID) >= 0 {
			chatID = id
			break
		}
	}
	e.mu.Unlock()
	if chatID == "" {
		return ErrMessageNotFound
	}

	result, err := e.backend.EditMessage(ctx, chatID, messageID, content)
	if err != nil {
		e.setError(err.Error())
		return err
	}

	e.mu.Lock()
	if session, ok := e.chats[chatID]; ok {
		e.applyEditLocked(session, messageID, result)
		e.persistLocked()
	}
	e.mu.Unlock()
	e.notify()
	return nil
}

// applyEditLocked swaps in the edited user message and the regenerated
// assistant reply that follows it. Both inherit the session mode when
// the backend omits it.
func (e *Engine) applyEditLocked(session *model.ChatSession, messageID string, result *api.EditResult) {
	fallback := session.Mode.OrDefault()
	if fallback == "" {
		fallback = e.mode
	}

	idx := session.FindMessage(messageID)
	if idx < 0 || result.EditedUserMessage == nil {
		return
	}

	edited := result.EditedUserMessage.Clone()
	edited.EnsureMode(fallback)
	session.Messages[idx] = edited

	if result.NewAssistantMessage == nil {
		return
	}
	assistant := result.NewAssistantMessage.Clone()
	assistant.EnsureMode(fallback)
	if len(result.Sources) > 0 {
		assistant.Sources = result.Sources
	}

	for i := idx + 1; i < len(session.Messages); i++ {
		if session.Messages[i].Role == model.RoleAssistant {
			session.Messages[i] = assistant
			return
		}
	}
	session.Messages = append(session.Messages, assistant)
}

// Search runs a free-text search pass-through using the current mode.
func (e *Engine) Search(ctx context.Context, query string) (*api.SearchResult, error) {
	result, err := e.backend.Search(ctx, query, e.ModePreference())
	if err != nil {
		e.setError(err.Error())
		return nil, err
	}
	return result, nil
}

// =============================================================================
// PREFERENCE AND STATE COMMANDS
// =============================================================================

// SetMode changes and persists the conversation-mode preference.
func (e *Engine) SetMode(mode model.Mode) {
	e.mu.Lock()
	e.mode = mode.OrDefault()
	if e.cache != nil {
		e.cache.SaveMode(e.mode)
	}
	e.mu.Unlock()
	e.notify()
}

// CancelInFlight resets typing, progress and streaming state locally.
// The outstanding backend request is not cancelled; its completed or
// error event will still be absorbed harmlessly, but late progress and
// chunk events are retired along with the turn.
func (e *Engine) CancelInFlight() {
	e.mu.Lock()
	e.isAssistantTyping = false
	e.assistantTypingMode = ""
	e.messageProgress = make(map[string]model.Progress)
	e.streamingMessageID = ""
	e.streamingContent = ""
	e.inFlight = make(map[string]bool)
	e.mu.Unlock()
	e.notify()
}

// ClearError dismisses the engine-level error.
func (e *Engine) ClearError() {
	e.mu.Lock()
	e.lastError = ""
	e.wsError = false
	e.mu.Unlock()
	e.notify()
}

// ClearAll wipes every session, indicator and cached entry.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	e.chats = make(map[string]*model.ChatSession)
	e.currentChatID = ""
	e.history = nil
	e.hasHydrated = false
	e.isAssistantTyping = false
	e.assistantTypingMode = ""
	e.messageProgress = make(map[string]model.Progress)
	e.streamingMessageID = ""
	e.streamingContent = ""
	e.chainOfThoughts = make(map[string]map[string]model.ThoughtPhase)
	e.inFlight = make(map[string]bool)
	e.lastError = ""
	if e.cache != nil {
		e.cache.Clear()
	}
	e.mu.Unlock()
	e.notify()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sessionLocked returns the session for chatID, creating a confirmed
// empty one if the engine has no record of it.
func (e *Engine) sessionLocked(chatID string) *model.ChatSession {
	if session, ok := e.chats[chatID]; ok {
		return session
	}
	session := &model.ChatSession{
		ChatID:   chatID,
		Messages: []model.Message{},
		Mode:     e.mode,
	}
	e.chats[chatID] = session
	return session
}

// setError records a dismissible engine-level error.
func (e *Engine) setError(message string) {
	e.mu.Lock()
	e.lastError = message
	e.mu.Unlock()
	e.notify()
}
