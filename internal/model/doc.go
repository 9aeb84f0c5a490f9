// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// A ChatSession is one conversation thread holding an ordered list of
// Messages. Each Message carries a version history (edits append versions)
// and an explicit provisional Status that marks locally synthesized
// messages: optimistic user inserts, streaming placeholders, and error
// bubbles. Reconciliation filters on Status, never on id conventions, so a
// server-issued id can never collide with a provisional marker.
//
// The package has no dependencies on the transport or engine layers; it is
// shared by the request clients, the local cache, and the synchronization
// engine.
package model
