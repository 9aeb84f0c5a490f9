// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatsync-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatsync configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// Transport (realtime channel) settings
	Transport TransportConfig `toml:"transport"`

	// API (HTTP request) settings
	API APIConfig `toml:"api"`

	// Cache settings
	Cache CacheConfig `toml:"cache"`

	// Chat settings
	Chat ChatConfig `toml:"chat"`
}

// ServerConfig contains backend endpoint configuration.
type ServerConfig struct {
	// URL is the backend base URL (http/https).
	URL string `toml:"url"`
	// Token is the bearer token for the session. Prefer the
	// CHATSYNC_TOKEN environment variable over storing it here.
	Token string `toml:"token"`
}

// TransportConfig contains realtime channel tuning.
type TransportConfig struct {
	// ConnectTimeoutSecs bounds the WebSocket dial and upgrade.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs"`
	// SendTimeoutSecs bounds the wait for a message acknowledgement.
	SendTimeoutSecs int `toml:"send_timeout_secs"`
	// ReconnectIntervalMillis is the base reconnect backoff delay.
	ReconnectIntervalMillis int `toml:"reconnect_interval_millis"`
	// MaxReconnectAttempts caps automatic reconnection.
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
}

// APIConfig contains HTTP request tuning.
type APIConfig struct {
	// TimeoutSecs bounds chat CRUD requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// GenerationTimeoutSecs bounds requests that run a model turn.
	GenerationTimeoutSecs int `toml:"generation_timeout_secs"`
}

// CacheConfig contains local cache configuration.
type CacheConfig struct {
	// Dir overrides the cache directory (default ~/.chatsync/cache).
	Dir string `toml:"dir"`
	// DevMode enables persistence of the chat map between runs.
	DevMode bool `toml:"dev_mode"`
}

// ChatConfig contains conversation defaults.
type ChatConfig struct {
	// DefaultMode is the conversation mode used for new chats when no
	// persisted preference exists: "default", "news" or "law".
	DefaultMode string `toml:"default_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Transport: TransportConfig{
			ConnectTimeoutSecs:      15,
			SendTimeoutSecs:         30,
			ReconnectIntervalMillis: 1000,
			MaxReconnectAttempts:    5,
		},
		API: APIConfig{
			TimeoutSecs:           30,
			GenerationTimeoutSecs: 180,
		},
		Cache: CacheConfig{},
		Chat: ChatConfig{
			DefaultMode: "default",
		},
	}
}

// =============================================================================
// FILE PATHS
// =============================================================================

// ConfigDir returns the chatsync configuration directory.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".chatsync"), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration: built-in defaults, then the TOML file if
// present, then environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.SetDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	if c.Transport.ConnectTimeoutSecs == 0 {
		c.Transport.ConnectTimeoutSecs = d.Transport.ConnectTimeoutSecs
	}
	if c.Transport.SendTimeoutSecs == 0 {
		c.Transport.SendTimeoutSecs = d.Transport.SendTimeoutSecs
	}
	if c.Transport.ReconnectIntervalMillis == 0 {
		c.Transport.ReconnectIntervalMillis = d.Transport.ReconnectIntervalMillis
	}
	if c.Transport.MaxReconnectAttempts == 0 {
		c.Transport.MaxReconnectAttempts = d.Transport.MaxReconnectAttempts
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.GenerationTimeoutSecs == 0 {
		c.API.GenerationTimeoutSecs = d.API.GenerationTimeoutSecs
	}
	if c.Chat.DefaultMode == "" {
		c.Chat.DefaultMode = d.Chat.DefaultMode
	}
}

// ApplyEnvOverrides applies CHATSYNC_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHATSYNC_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("CHATSYNC_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("CHATSYNC_MODE"); v != "" {
		c.Chat.DefaultMode = v
	}
	if v := os.Getenv("CHATSYNC_DEV"); v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			c.Cache.DevMode = dev
		}
	}
	if v := os.Getenv("CHATSYNC_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default location.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to a specific file atomically.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatsync configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// The file may hold a token; keep it owner-only.
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.Server.URL)
	if err != nil || parsed.Host == "" {
		return ValidationError{Field: "server.url", Message: "must be a valid http(s) URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ValidationError{Field: "server.url", Message: "scheme must be http or https"}
	}

	if c.Transport.ConnectTimeoutSecs < 1 {
		return ValidationError{Field: "transport.connect_timeout_secs", Message: "must be at least 1"}
	}
	if c.Transport.SendTimeoutSecs < 1 {
		return ValidationError{Field: "transport.send_timeout_secs", Message: "must be at least 1"}
	}
	if c.Transport.MaxReconnectAttempts < 1 {
		return ValidationError{Field: "transport.max_reconnect_attempts", Message: "must be at least 1"}
	}
	if c.API.GenerationTimeoutSecs < c.API.TimeoutSecs {
		return ValidationError{Field: "api.generation_timeout_secs",
			Message: "must not be shorter than api.timeout_secs"}
	}

	switch strings.ToLower(c.Chat.DefaultMode) {
	case "default", "news", "law":
	default:
		return ValidationError{Field: "chat.default_mode", Message: "must be default, news or law"}
	}
	return nil
}

// =============================================================================
// DURATION ACCESSORS
// =============================================================================

// ConnectTimeout returns the connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Transport.ConnectTimeoutSecs) * time.Second
}

// SendTimeout returns the send timeout as a duration.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Transport.SendTimeoutSecs) * time.Second
}

// ReconnectInterval returns the reconnect base delay as a duration.
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Transport.ReconnectIntervalMillis) * time.Millisecond
}

// APITimeout returns the CRUD request timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// GenerationTimeout returns the model-turn request timeout as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.API.GenerationTimeoutSecs) * time.Second
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first
// use. Load failures fall back to defaults.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	cfg, err := Load()
	if err != nil {
		cfg = Default()
	}
	SetGlobal(cfg)
	return cfg
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	globalConfig = cfg
	globalMu.Unlock()
}

// ResetGlobalForTesting clears the global config. Tests only.
func ResetGlobalForTesting() {
	globalMu.Lock()
	globalConfig = nil
	globalMu.Unlock()
}
