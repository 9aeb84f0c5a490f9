// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
//
// The surface owns no chat state. It reads engine snapshots, renders
// them, and translates key presses into engine commands. Engine change
// notifications arrive as StateChangedMsg values sent into the running
// program, after which the surface takes a fresh snapshot and redraws.
package chat
