// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the chatsync TUI.
//
// It contains the atomic file writer used by the local cache and the
// rune-safe string helpers used for previews and list rendering.
package util
