// chatsync TUI - a terminal client for the chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatsync-tui/internal/api"
	"github.com/jeranaias/chatsync-tui/internal/config"
	"github.com/jeranaias/chatsync-tui/internal/engine"
	"github.com/jeranaias/chatsync-tui/internal/model"
	"github.com/jeranaias/chatsync-tui/internal/storage"
	"github.com/jeranaias/chatsync-tui/internal/transport"
	"github.com/jeranaias/chatsync-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async engine notifications
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// tokenAuth adapts the configured bearer token to the transport and API
// authentication interfaces.
type tokenAuth struct {
	token string
}

func (a tokenAuth) IsAuthenticated() bool { return a.token != "" }
func (a tokenAuth) Token() string         { return a.token }

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "version" || os.Args[1] == "--version") {
		fmt.Printf("chatsync %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	// The terminal owns stdout; route the standard logger to a file so
	// transport and engine diagnostics do not corrupt the display.
	if dir, err := config.ConfigDir(); err == nil {
		if err := config.EnsureConfigDir(); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, "chatsync.log"),
				os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
			if err == nil {
				defer f.Close()
				log.SetOutput(f)
			}
		}
	}
	if log.Writer() == os.Stderr {
		log.SetOutput(io.Discard)
	}

	auth := tokenAuth{token: cfg.Server.Token}

	// Local cache
	var cache *storage.Cache
	if cfg.Cache.Dir != "" {
		cache, err = storage.NewCacheWithDir(cfg.Cache.Dir, cfg.Cache.DevMode)
	} else {
		cache, err = storage.NewCache(cfg.Cache.DevMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		cache = nil
	}

	// HTTP request client
	apiClient := api.NewClient(&api.Config{
		BaseURL:           cfg.Server.URL,
		Timeout:           cfg.APITimeout(),
		GenerationTimeout: cfg.GenerationTimeout(),
	}, auth)

	// Realtime channel
	rt := transport.NewClient(&transport.Config{
		URL:                  cfg.Server.URL,
		ConnectTimeout:       cfg.ConnectTimeout(),
		SendTimeout:          cfg.SendTimeout(),
		ReconnectInterval:    cfg.ReconnectInterval(),
		MaxReconnectAttempts: cfg.Transport.MaxReconnectAttempts,
	}, auth)

	// Engine over transport, backend and cache
	eng := engine.New(rt, apiClient, cache)
	eng.Attach(rt)

	// Every engine mutation redraws the surface.
	eng.SetOnChange(func() {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(chat.StateChangedMsg{})
		}
	})

	// The configured default mode applies until a persisted preference
	// exists; SetMode writes through to the cache.
	if cache == nil || !cache.Has(storage.KeyMode) {
		eng.SetMode(model.Mode(cfg.Chat.DefaultMode))
	}

	p := tea.NewProgram(
		chat.New(eng),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Dial eagerly so the surface starts online; SendMessage redials on
	// demand if this fails.
	go func() {
		if err := rt.Connect(context.Background()); err != nil {
			log.Printf("startup connect failed: %v", err)
		}
	}()
	defer rt.Disconnect()

	// Re-apply the reloadable settings when the config file changes:
	// request timeouts take effect on the next call, and the default mode
	// follows the file while no preference has been persisted. Connection
	// settings apply on the next reconnect.
	if path, err := config.ConfigPath(); err == nil {
		w, err := config.Watch(path, func(newCfg *config.Config) {
			apiClient.SetTimeouts(newCfg.APITimeout(), newCfg.GenerationTimeout())
			if cache == nil {
				eng.SetMode(model.Mode(newCfg.Chat.DefaultMode))
			}
		})
		if err == nil {
			defer w.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running chatsync: %v\n", err)
		os.Exit(1)
	}
}
