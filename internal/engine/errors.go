// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import "fmt"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes engine errors for programmatic handling.
type ErrorType string

const (
	// ErrTypeUnknown is an unclassified error.
	ErrTypeUnknown ErrorType = "unknown"

	// ErrTypeChatNotFound means the referenced chat does not exist.
	ErrTypeChatNotFound ErrorType = "chat_not_found"

	// ErrTypeMessageNotFound means the referenced message does not exist.
	ErrTypeMessageNotFound ErrorType = "message_not_found"

	// ErrTypeEmptyContent means the outgoing content was blank.
	ErrTypeEmptyContent ErrorType = "empty_content"
)

// EngineError represents an engine error with context.
type EngineError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support for comparing error types.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Common sentinel errors for errors.Is checks.
var (
	ErrChatNotFound    = &EngineError{Type: ErrTypeChatNotFound, Message: "chat not found"}
	ErrMessageNotFound = &EngineError{Type: ErrTypeMessageNotFound, Message: "message not found"}
	ErrEmptyContent    = &EngineError{Type: ErrTypeEmptyContent, Message: "message content is empty"}
)
