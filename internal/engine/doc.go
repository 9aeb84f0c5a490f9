// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine implements the chat session synchronization engine.
//
// The engine is the single owner of all chat state: the session map, the
// current-chat pointer, the lightweight history list, typing/progress
// indicators, the streaming buffer, and connection status. Consumers
// never mutate it; they read deep-copied snapshots and invoke commands.
//
// Three independent update sources flow into the same state: optimistic
// local edits, partial streaming chunks, and final authoritative
// completed events. Reconciliation follows a filter-then-append
// discipline that makes completed events idempotent: provisional
// artifacts (optimistic inserts, streaming placeholders, error bubbles)
// and any earlier copy of the authoritative pair are removed before the
// pair is appended, so replaying an event cannot duplicate messages.
//
// A turn moves idle -> sending -> streaming (zero or more chunks) ->
// completed or errored. Completion and error are terminal: the engine
// tracks in-flight turn ids and silently drops progress or chunk events
// for turns that have already settled or been cancelled.
package engine
