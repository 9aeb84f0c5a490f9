// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import "fmt"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes transport errors for programmatic handling.
type ErrorType string

const (
	// ErrTypeUnknown is an unclassified error.
	ErrTypeUnknown ErrorType = "unknown"

	// ErrTypeNotAuthenticated means the realtime channel was used before
	// sign-in.
	ErrTypeNotAuthenticated ErrorType = "not_authenticated"

	// ErrTypeNotConnected means a send was attempted without a live
	// connection.
	ErrTypeNotConnected ErrorType = "not_connected"

	// ErrTypeTimeout means the connect or settle deadline elapsed.
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeHandshake means the WebSocket dial or upgrade failed.
	ErrTypeHandshake ErrorType = "handshake"

	// ErrTypeConnectionLost means the connection dropped with the request
	// still pending.
	ErrTypeConnectionLost ErrorType = "connection_lost"

	// ErrTypeRejected means the backend answered the request with an
	// error event.
	ErrTypeRejected ErrorType = "rejected"
)

// ClientError represents a transport error with context.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is support for comparing error types.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Common sentinel errors for errors.Is checks.
var (
	ErrNotAuthenticated = &ClientError{Type: ErrTypeNotAuthenticated, Message: "not authenticated"}
	ErrNotConnected     = &ClientError{Type: ErrTypeNotConnected, Message: "not connected"}
	ErrConnectTimeout   = &ClientError{Type: ErrTypeTimeout, Message: "connection timeout"}
	ErrSendTimeout      = &ClientError{Type: ErrTypeTimeout, Message: "message timeout"}
	ErrConnectionLost   = &ClientError{Type: ErrTypeConnectionLost, Message: "connection lost"}
)
