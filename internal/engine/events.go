// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"log"
	"time"

	"github.com/jeranaias/chatsync-tui/internal/model"
	"github.com/jeranaias/chatsync-tui/internal/transport"
)

// =============================================================================
// REALTIME EVENT HANDLERS
// =============================================================================

// Attach subscribes the engine's handlers to a realtime client.
func (e *Engine) Attach(client *transport.Client) {
	client.OnProgress(e.HandleProgress)
	client.OnChunk(e.HandleChunk)
	client.OnCompleted(e.HandleCompleted)
	client.OnError(e.HandleError)
	client.OnChainOfThought(e.HandleChainOfThought)
	client.OnConnect(e.HandleConnect)
	client.OnDisconnect(e.HandleDisconnect)
}

// HandleProgress stores the latest progress descriptor for an in-flight
// turn. The new event fully replaces the previous entry; progress for
// settled or cancelled turns is dropped silently.
func (e *Engine) HandleProgress(ev transport.ProgressEvent) {
	e.mu.Lock()
	if !e.inFlight[ev.MessageID] {
		e.mu.Unlock()
		return
	}
	e.messageProgress[ev.MessageID] = ev.Descriptor()
	e.mu.Unlock()
	e.notify()
}

// HandleChunk applies cumulative streamed content to the single
// streaming placeholder of the current chat, creating it on the first
// chunk. Chunks for settled or cancelled turns are dropped silently.
func (e *Engine) HandleChunk(ev transport.ChunkEvent) {
	e.mu.Lock()
	if !e.inFlight[ev.MessageID] {
		e.mu.Unlock()
		return
	}

	e.streamingMessageID = ev.MessageID
	e.streamingContent = ev.FullContent

	if session, ok := e.chats[e.currentChatID]; ok {
		if idx := session.FindStreaming(); idx >= 0 {
			session.Messages[idx].Versions[session.Messages[idx].CurrentVersionIndex].Content = ev.FullContent
			session.Messages[idx].UpdatedAt = time.Now()
		} else {
			session.Messages = append(session.Messages,
				model.NewStreamingMessage(session.ChatID, ev.FullContent, session.Mode))
		}
	}
	e.mu.Unlock()
	e.notify()
}

// HandleCompleted reconciles the authoritative result of a turn into the
// chat map. The operation is idempotent: provisional artifacts and any
// earlier copy of the pair are filtered out before the pair is appended,
// so redelivery cannot duplicate messages. Completions are absorbed even
// after CancelInFlight.
func (e *Engine) HandleCompleted(ev transport.CompletedEvent) {
	if !ev.Valid() {
		log.Printf("engine: dropping malformed completed event for %q", ev.MessageID)
		return
	}

	e.mu.Lock()

	serverID := ev.Data.ChatID
	userMsg := ev.Data.UserMessage.Clone()
	assistantMsg := ev.Data.AssistantMessage.Clone()

	// Locate the target: a first-message completion lands on the single
	// temporary session awaiting promotion; otherwise on the confirmed
	// session, which is created if unknown.
	var target *model.ChatSession
	tempID := ""
	if ev.Data.IsFirstMessage {
		for id, session := range e.chats {
			if session.IsTemporary {
				target = session
				tempID = id
				break
			}
		}
	}
	if target == nil {
		target = e.sessionLocked(serverID)
	}

	fallback := target.Mode.OrDefault()
	if userMsg.Mode != "" {
		fallback = userMsg.Mode
	}
	userMsg.EnsureMode(fallback)
	assistantMsg.EnsureMode(fallback)
	userMsg.ChatID = serverID
	assistantMsg.ChatID = serverID

	// Filter-then-append: drop provisional artifacts and any earlier
	// copy of the authoritative pair.
	kept := make([]model.Message, 0, len(target.Messages)+2)
	for _, m := range target.WithoutProvisional() {
		if m.ID == userMsg.ID || m.ID == assistantMsg.ID {
			continue
		}
		kept = append(kept, m)
	}
	target.Messages = append(kept, userMsg, assistantMsg)
	target.Mode = userMsg.Mode
	if ev.Data.Title != "" {
		target.Title = ev.Data.Title
	}

	// Promotion: the temporary key gives way to the server chat id.
	if tempID != "" && tempID != serverID {
		target.ChatID = serverID
		target.IsTemporary = false
		e.chats[serverID] = target
		delete(e.chats, tempID)
		if e.currentChatID == tempID {
			e.currentChatID = serverID
		}
	} else {
		target.IsTemporary = false
	}

	delete(e.messageProgress, ev.MessageID)
	if e.streamingMessageID == ev.MessageID {
		e.streamingMessageID = ""
		e.streamingContent = ""
	}
	delete(e.chainOfThoughts, ev.MessageID)
	delete(e.inFlight, ev.MessageID)
	e.isAssistantTyping = false
	e.assistantTypingMode = ""

	e.persistLocked()
	e.mu.Unlock()
	e.notify()

	// History refresh is best-effort and must not block reconciliation.
	go e.RefreshHistory(context.Background())
}

// HandleError records the failure and retires the turn. The user must
// resend; there is no automatic retry.
func (e *Engine) HandleError(ev transport.ErrorEvent) {
	id := ev.MessageID
	if id == "" {
		id = ev.CorrelationID
	}

	e.mu.Lock()
	e.lastError = ev.Reason()
	delete(e.messageProgress, id)
	if e.streamingMessageID == id {
		e.streamingMessageID = ""
		e.streamingContent = ""
	}
	delete(e.inFlight, id)
	e.isAssistantTyping = false
	e.assistantTypingMode = ""
	e.mu.Unlock()
	e.notify()
}

// HandleChainOfThought merges one reasoning-trace update, additive per
// phase key. Informational only.
func (e *Engine) HandleChainOfThought(ev transport.ChainOfThoughtEvent) {
	e.mu.Lock()
	if !e.inFlight[ev.MessageID] {
		e.mu.Unlock()
		return
	}
	phases, ok := e.chainOfThoughts[ev.MessageID]
	if !ok {
		phases = make(map[string]model.ThoughtPhase)
		e.chainOfThoughts[ev.MessageID] = phases
	}
	phases[ev.Phase] = ev.ToPhase()
	e.mu.Unlock()
	e.notify()
}

// =============================================================================
// CONNECTION META-EVENTS
// =============================================================================

// HandleConnect records the channel coming up.
func (e *Engine) HandleConnect() {
	e.mu.Lock()
	e.connected = true
	e.wsError = false
	e.mu.Unlock()
	e.notify()
}

// HandleDisconnect records the channel going down.
func (e *Engine) HandleDisconnect(reason string) {
	e.mu.Lock()
	e.connected = false
	e.wsError = true
	e.mu.Unlock()
	e.notify()
}
