// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chatsync-tui/internal/engine"
	"github.com/jeranaias/chatsync-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StateChangedMsg tells the surface that engine state changed and a fresh
// snapshot should be taken. The runtime sends it from the engine's
// change callback via tea.Program.Send.
type StateChangedMsg struct{}

// engineErrMsg carries the failure of an asynchronous engine command.
type engineErrMsg struct{ err error }

// inputMode selects what the input line is editing.
type inputMode int

const (
	inputMessage inputMode = iota
	inputRename
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat surface.
type Model struct {
	eng  *engine.Engine
	snap *engine.Snapshot

	theme    *styles.Theme
	keys     KeyMap
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	inputMode inputMode

	width  int
	height int
	ready  bool

	// localErr shows command failures the engine itself never saw,
	// such as a rejected rename. Cleared on the next key press.
	localErr string
}

// New creates the chat surface over the given engine.
func New(eng *engine.Engine) Model {
	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 0
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		eng:     eng,
		snap:    eng.Snapshot(),
		theme:   styles.NewTheme(80, 24),
		keys:    DefaultKeyMap(),
		input:   input,
		spinner: sp,
	}
}

// Init starts the spinner and the initial history refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textarea.Blink,
		m.refreshHistoryCmd(),
	)
}

