// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// chatsync.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides, loaded from ~/.chatsync/config.toml. A file watcher can
// re-apply tunable settings while the client runs.
package config
