// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the persistent WebSocket client for the
// chatsync real-time channel.
//
// The client owns one connection, gated on the caller being
// authenticated. Outgoing message-create requests are tagged with a
// correlation id and settled exactly once through a pending-request
// table: the matching acknowledgement, the matching error event, or a
// bounded timeout, whichever comes first. Named server events
// (progress, chunk, completed, error, chain-of-thought) fan out to
// subscribers in subscription order.
//
// Reconnection happens only after a server-initiated disconnect, with
// linearly increasing backoff up to a fixed attempt cap.
package transport
