// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatsync-tui/internal/api"
	"github.com/jeranaias/chatsync-tui/internal/model"
	"github.com/jeranaias/chatsync-tui/internal/storage"
	"github.com/jeranaias/chatsync-tui/internal/transport"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Realtime is the engine's view of the WebSocket transport.
type Realtime interface {
	Connect(ctx context.Context) error
	Connected() bool
	SendCreate(ctx context.Context, req transport.CreateMessageRequest) (string, error)
}

// Backend is the engine's view of the HTTP request clients.
type Backend interface {
	ListChats(ctx context.Context) ([]model.ChatListItem, error)
	RenameChat(ctx context.Context, chatID, title string) error
	DeleteChat(ctx context.Context, chatID string) error
	GetMessages(ctx context.Context, chatID string) ([]model.Message, error)
	EditMessage(ctx context.Context, chatID, messageID, content string) (*api.EditResult, error)
	Search(ctx context.Context, query string, mode model.Mode) (*api.SearchResult, error)
}

// =============================================================================
// ENGINE TYPE
// =============================================================================

// Engine is the authoritative owner of all chat state.
type Engine struct {
	rt      Realtime
	backend Backend
	cache   *storage.Cache

	// historyLimiter throttles the async history refresh triggered by
	// completion events.
	historyLimiter *rate.Limiter

	mu sync.Mutex

	chats         map[string]*model.ChatSession
	currentChatID string
	history       []model.ChatListItem
	hasHydrated   bool

	isAssistantTyping   bool
	assistantTypingMode model.Mode

	messageProgress    map[string]model.Progress
	streamingMessageID string
	streamingContent   string
	chainOfThoughts    map[string]map[string]model.ThoughtPhase

	connected bool
	wsError   bool
	lastError string

	mode model.Mode

	// inFlight holds the turn ids whose progress/chunk events are still
	// welcome. Completion, error and cancel retire entries.
	inFlight map[string]bool

	onChange func()
}

// New creates an engine hydrated from the local cache.
func New(rt Realtime, backend Backend, cache *storage.Cache) *Engine {
	e := &Engine{
		rt:              rt,
		backend:         backend,
		cache:           cache,
		historyLimiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		chats:           make(map[string]*model.ChatSession),
		messageProgress: make(map[string]model.Progress),
		chainOfThoughts: make(map[string]map[string]model.ThoughtPhase),
		inFlight:        make(map[string]bool),
		mode:            model.ModeDefault,
	}
	if cache != nil {
		e.chats = cache.LoadChats()
		e.mode = cache.LoadMode()
	}
	return e
}

// SetOnChange registers the change-notification callback. The callback
// fires after every state mutation, outside the engine lock, so it may
// call Snapshot freely.
func (e *Engine) SetOnChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// notify fires the change callback. Never call with the lock held.
func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// persist mirrors the chat map into the local cache. Callers hold the
// lock; cache failures are non-fatal.
func (e *Engine) persistLocked() {
	if e.cache == nil {
		return
	}
	e.cache.SaveChats(e.chats)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a deep-copied, read-only view of engine state.
type Snapshot struct {
	Chats         map[string]*model.ChatSession
	CurrentChatID string
	History       []model.ChatListItem
	HasHydrated   bool

	IsAssistantTyping   bool
	AssistantTypingMode model.Mode

	MessageProgress    map[string]model.Progress
	StreamingMessageID string
	StreamingContent   string
	ChainOfThoughts    map[string]map[string]model.ThoughtPhase

	Connected bool
	WSError   bool
	Error     string

	Mode model.Mode
}

// CurrentChat returns the session under the current-chat pointer, or nil.
func (s *Snapshot) CurrentChat() *model.ChatSession {
	if s.CurrentChatID == "" {
		return nil
	}
	return s.Chats[s.CurrentChatID]
}

// LatestProgress returns the progress descriptor for the given message
// id, if one is held.
func (s *Snapshot) LatestProgress(messageID string) (model.Progress, bool) {
	p, ok := s.MessageProgress[messageID]
	return p, ok
}

// Snapshot returns a deep copy of the engine state. Consumers must not
// be able to reach engine-owned memory through it.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Chats:               make(map[string]*model.ChatSession, len(e.chats)),
		CurrentChatID:       e.currentChatID,
		History:             append([]model.ChatListItem(nil), e.history...),
		HasHydrated:         e.hasHydrated,
		IsAssistantTyping:   e.isAssistantTyping,
		AssistantTypingMode: e.assistantTypingMode,
		MessageProgress:     make(map[string]model.Progress, len(e.messageProgress)),
		StreamingMessageID:  e.streamingMessageID,
		StreamingContent:    e.streamingContent,
		ChainOfThoughts:     make(map[string]map[string]model.ThoughtPhase, len(e.chainOfThoughts)),
		Connected:           e.connected,
		WSError:             e.wsError,
		Error:               e.lastError,
		Mode:                e.mode,
	}
	for id, session := range e.chats {
		snap.Chats[id] = session.Clone()
	}
	for id, p := range e.messageProgress {
		snap.MessageProgress[id] = p
	}
	for id, phases := range e.chainOfThoughts {
		copied := make(map[string]model.ThoughtPhase, len(phases))
		for phase, v := range phases {
			copied[phase] = v
		}
		snap.ChainOfThoughts[id] = copied
	}
	return snap
}

// ModePreference returns the active conversation mode.
func (e *Engine) ModePreference() model.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Connected reports the realtime connection state as last observed.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}
