// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value local cache for chatsync.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/chatsync-tui/internal/model"
	"github.com/jeranaias/chatsync-tui/internal/util"
)

// Well-known cache keys.
const (
	// KeyChats holds the serialized chat-session map (dev builds only).
	KeyChats = "chats"

	// KeyMode holds the conversation-mode preference.
	KeyMode = "mode"
)

// keyPrefix namespaces every cache file.
const keyPrefix = "ai_chat_"

// =============================================================================
// CACHE TYPE
// =============================================================================

// Cache is a prefixed key-value store backed by JSON files.
type Cache struct {
	// BaseDir is the directory holding cache files.
	// Default: ~/.chatsync/cache/
	BaseDir string

	// DevMode enables persistence of the chat map. In production builds
	// the chat map is held in memory only.
	DevMode bool
}

// NewCache creates a cache rooted in the user's home directory.
func NewCache(devMode bool) (*Cache, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Join(homeDir, ".chatsync", "cache")
	return NewCacheWithDir(baseDir, devMode)
}

// NewCacheWithDir creates a cache with a custom directory.
func NewCacheWithDir(baseDir string, devMode bool) (*Cache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		BaseDir: baseDir,
		DevMode: devMode,
	}, nil
}

// =============================================================================
// GENERIC OPERATIONS
// =============================================================================

// Get reads the value stored under key into v. Returns ErrCacheMiss when
// the key is absent or gated out of this build.
func (c *Cache) Get(key string, v any) error {
	if c.gated(key) {
		return ErrCacheMiss
	}

	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCacheMiss
		}
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		// A corrupted entry is treated as a miss rather than an error;
		// the engine rebuilds it from the backend.
		return ErrCacheMiss
	}
	return nil
}

// Set stores v under key. Gated keys are silently skipped.
func (c *Cache) Set(key string, v any) error {
	if c.gated(key) {
		return nil
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(c.filePath(key), data, 0644)
}

// Has reports whether a value is stored under key. Gated keys always
// report false.
func (c *Cache) Has(key string) bool {
	if c.gated(key) {
		return false
	}
	_, err := os.Stat(c.filePath(key))
	return err == nil
}

// Remove deletes the value stored under key.
func (c *Cache) Remove(key string) error {
	err := os.Remove(c.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes every entry in this cache's namespace.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), keyPrefix) {
			continue
		}
		os.Remove(filepath.Join(c.BaseDir, entry.Name()))
	}
	return nil
}

// =============================================================================
// TYPED OPERATIONS
// =============================================================================

// LoadChats reads the cached chat-session map. Returns an empty map on a
// cache miss so callers always start from a usable value.
func (c *Cache) LoadChats() map[string]*model.ChatSession {
	chats := make(map[string]*model.ChatSession)
	if err := c.Get(KeyChats, &chats); err != nil {
		return make(map[string]*model.ChatSession)
	}
	if chats == nil {
		return make(map[string]*model.ChatSession)
	}
	return chats
}

// SaveChats persists the chat-session map (no-op outside dev builds).
func (c *Cache) SaveChats(chats map[string]*model.ChatSession) error {
	return c.Set(KeyChats, chats)
}

// LoadMode reads the persisted mode preference, defaulting when unset.
func (c *Cache) LoadMode() model.Mode {
	var mode model.Mode
	if err := c.Get(KeyMode, &mode); err != nil {
		return model.ModeDefault
	}
	return mode.OrDefault()
}

// SaveMode persists the mode preference.
func (c *Cache) SaveMode(mode model.Mode) error {
	return c.Set(KeyMode, mode.OrDefault())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// gated reports whether the key is excluded from persistence in this build.
func (c *Cache) gated(key string) bool {
	return key == KeyChats && !c.DevMode
}

// filePath returns the namespaced file path for a key.
func (c *Cache) filePath(key string) string {
	return filepath.Join(c.BaseDir, keyPrefix+key+".json")
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrCacheMiss is returned when a key is absent or gated.
// Use errors.Is(err, ErrCacheMiss) to check for this error.
var ErrCacheMiss = &CacheError{Message: "cache miss"}

// CacheError represents a cache-related error.
type CacheError struct {
	Message string
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing cache errors.
func (e *CacheError) Is(target error) bool {
	t, ok := target.(*CacheError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
