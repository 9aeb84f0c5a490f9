// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import "time"

// =============================================================================
// PROGRESS DESCRIPTOR
// =============================================================================

// Progress is a structured, human-readable status update about backend
// processing stages. The engine keeps only the latest descriptor per
// message; each event fully replaces the previous one.
type Progress struct {
	MessageID string    `json:"messageId"`
	Stage     string    `json:"stage,omitempty"`
	Substage  string    `json:"substage,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// DisplayLine returns the line the UI shows while a turn is in flight.
func (p Progress) DisplayLine() string {
	switch {
	case p.Title != "" && p.Message != "":
		return p.Title + " — " + p.Message
	case p.Title != "":
		return p.Title
	case p.Message != "":
		return p.Message
	default:
		return p.Stage
	}
}

// =============================================================================
// CHAIN OF THOUGHT
// =============================================================================

// ThoughtPhase is one phase of the backend's reasoning trace. Phases are
// informational and additive per phase key; they never affect the main
// turn state machine.
type ThoughtPhase struct {
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
