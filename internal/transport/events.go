// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the persistent WebSocket client for the
// chatsync real-time channel.
package transport

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/chatsync-tui/internal/model"
)

// =============================================================================
// EVENT NAMES
// =============================================================================

// Wire event names, shared with the backend.
const (
	EventMessageCreate    = "message:create"
	EventMessageReceived  = "message:received"
	EventMessageError     = "message:error"
	EventMessageProgress  = "message:progress"
	EventMessageChunk     = "message:chunk"
	EventMessageCompleted = "message:completed"
	EventChainOfThought   = "message:chain_of_thoughts"
)

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// =============================================================================
// CLIENT -> SERVER
// =============================================================================

// CreateMessageRequest asks the backend to run one turn. A nil ChatID
// requests a new chat. The correlation id ties the acknowledgement and
// all later events for the turn back to this request.
type CreateMessageRequest struct {
	ChatID        *string    `json:"chatId"`
	Content       string     `json:"content"`
	Mode          model.Mode `json:"mode,omitempty"`
	Streaming     bool       `json:"streaming"`
	CorrelationID string     `json:"correlationId"`
}

// =============================================================================
// SERVER -> CLIENT
// =============================================================================

// AckEvent acknowledges a create request. The backend adopts the
// correlation id as the turn's message id, so later progress, chunk and
// completed events are keyed by it.
type AckEvent struct {
	CorrelationID string `json:"correlationId"`
	MessageID     string `json:"messageId,omitempty"`
}

// ErrorDetail carries the backend's failure description.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// ErrorEvent reports a failed turn. When CorrelationID is set it settles
// the matching pending request; the engine also consumes it to clear
// in-flight state.
type ErrorEvent struct {
	CorrelationID string       `json:"correlationId,omitempty"`
	MessageID     string       `json:"messageId,omitempty"`
	Error         *ErrorDetail `json:"error,omitempty"`
}

// Reason returns a human-readable failure reason.
func (e ErrorEvent) Reason() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return "Message failed"
}

// ProgressEvent is a multi-stage status update for an in-flight turn.
// The latest event fully replaces any earlier one for the same message.
type ProgressEvent struct {
	MessageID string          `json:"messageId"`
	Stage     string          `json:"stage,omitempty"`
	Details   ProgressDetails `json:"details"`
}

// ProgressDetails is the structured, display-ready part of a progress
// event.
type ProgressDetails struct {
	Stage     string    `json:"stage,omitempty"`
	Substage  string    `json:"substage,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Descriptor flattens the event into the model's progress descriptor,
// preferring the structured details over the top-level stage.
func (e ProgressEvent) Descriptor() model.Progress {
	stage := e.Details.Stage
	if stage == "" {
		stage = e.Stage
	}
	return model.Progress{
		MessageID: e.MessageID,
		Stage:     stage,
		Substage:  e.Details.Substage,
		Title:     e.Details.Title,
		Message:   e.Details.Message,
		Icon:      e.Details.Icon,
		Timestamp: e.Details.Timestamp,
	}
}

// ChunkEvent carries the cumulative streamed content so far. FullContent
// is the entire reply to date, not a delta, so chunks are trivially
// idempotent and reordering-safe.
type ChunkEvent struct {
	MessageID   string    `json:"messageId"`
	Content     string    `json:"content,omitempty"`
	FullContent string    `json:"fullContent"`
	ChunkIndex  int       `json:"chunkIndex"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// CompletedEvent is the terminal, authoritative result of a turn.
type CompletedEvent struct {
	MessageID string         `json:"messageId"`
	Data      *CompletedData `json:"data"`
}

// CompletedData holds the server-confirmed chat id and the final
// user/assistant message pair.
type CompletedData struct {
	ChatID           string         `json:"chatId"`
	UserMessage      *model.Message `json:"userMessage"`
	AssistantMessage *model.Message `json:"assistantMessage"`
	IsFirstMessage   bool           `json:"isFirstMessage"`
	Title            string         `json:"title,omitempty"`
}

// Valid reports whether the payload carries everything reconciliation
// needs. Malformed completions are logged and dropped, never applied.
func (e CompletedEvent) Valid() bool {
	return e.Data != nil &&
		e.Data.ChatID != "" &&
		e.Data.UserMessage != nil &&
		e.Data.AssistantMessage != nil
}

// ChainOfThoughtEvent is an informational reasoning-trace update,
// additive per phase key.
type ChainOfThoughtEvent struct {
	MessageID   string    `json:"messageId"`
	Phase       string    `json:"phase"`
	Status      string    `json:"status"`
	Analysis    string    `json:"analysis,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Evaluation  string    `json:"evaluation,omitempty"`
	Reasoning   string    `json:"reasoning,omitempty"`
	SourceCount int       `json:"sourceCount,omitempty"`
	Phases      int       `json:"phases,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// ToPhase converts the event into the model's phase record.
func (e ChainOfThoughtEvent) ToPhase() model.ThoughtPhase {
	return model.ThoughtPhase{
		Phase:       e.Phase,
		Status:      e.Status,
		Analysis:    e.Analysis,
		Strategy:    e.Strategy,
		Evaluation:  e.Evaluation,
		Reasoning:   e.Reasoning,
		SourceCount: e.SourceCount,
		Phases:      e.Phases,
		Timestamp:   e.Timestamp,
	}
}
