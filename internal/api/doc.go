// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the chatsync backend.
//
// Every endpoint answers with the same envelope: a success flag, a
// human-readable message, and the payload under data. The client decodes
// that envelope once and hands typed results to callers. Chat CRUD uses
// the standard timeout; the generation endpoints (create message, edit
// message, search) run a full model turn server-side and get a much
// longer one.
package api
