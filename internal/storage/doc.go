// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value local cache for chatsync.
//
// The cache mirrors the engine's chat map and the conversation-mode
// preference as JSON files under a prefixed namespace. Writes are atomic.
// Outside development builds the chat map is not persisted, so stale or
// sensitive conversation history never lands on disk in production; the
// mode preference is persisted everywhere.
package storage
