// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chatsync-tui/internal/model"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.rebuildViewport()

	case StateChangedMsg:
		wasAtBottom := m.viewport.AtBottom()
		m.snap = m.eng.Snapshot()
		m.rebuildViewport()
		if wasAtBottom {
			m.viewport.GotoBottom()
		}

	case engineErrMsg:
		if msg.err != nil {
			m.localErr = msg.err.Error()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		newModel, cmd := m.handleKey(msg)
		return newModel, tea.Batch(append(cmds, cmd)...)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey dispatches key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A new key press dismisses a stale command failure.
	m.localErr = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		return m.handleCancel()

	case key.Matches(msg, m.keys.Send):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewChat):
		m.eng.CreateTempChat()
		m.snap = m.eng.Snapshot()
		m.rebuildViewport()
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		return m.handleNextChat()

	case key.Matches(msg, m.keys.Rename):
		return m.enterRename()

	case key.Matches(msg, m.keys.DeleteChat):
		if id := m.snap.CurrentChatID; id != "" {
			return m, m.deleteChatCmd(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleMode):
		m.eng.SetMode(nextMode(m.snap.Mode))
		m.snap = m.eng.Snapshot()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit routes enter to send or rename depending on input mode.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	if m.inputMode == inputRename {
		m.inputMode = inputMessage
		m.input.Reset()
		m.input.Placeholder = "Type a message..."
		if text == "" || m.snap.CurrentChatID == "" {
			return m, nil
		}
		return m, m.renameChatCmd(m.snap.CurrentChatID, text)
	}

	if text == "" {
		return m, nil
	}
	m.input.Reset()
	return m, m.sendMessageCmd(m.snap.CurrentChatID, text)
}

// handleCancel aborts a rename, or an in-flight turn, in that order.
func (m Model) handleCancel() (tea.Model, tea.Cmd) {
	if m.inputMode == inputRename {
		m.inputMode = inputMessage
		m.input.Reset()
		m.input.Placeholder = "Type a message..."
		return m, nil
	}
	if m.snap.IsAssistantTyping {
		m.eng.CancelInFlight()
		m.snap = m.eng.Snapshot()
		m.rebuildViewport()
		return m, nil
	}
	if m.snap.Error != "" {
		m.eng.ClearError()
		m.snap = m.eng.Snapshot()
	}
	return m, nil
}

// handleNextChat cycles to the next chat in the server history.
func (m Model) handleNextChat() (tea.Model, tea.Cmd) {
	if len(m.snap.History) == 0 {
		return m, m.refreshHistoryCmd()
	}
	next := m.snap.History[0].ID
	for i, item := range m.snap.History {
		if item.ID == m.snap.CurrentChatID {
			next = m.snap.History[(i+1)%len(m.snap.History)].ID
			break
		}
	}
	if next == m.snap.CurrentChatID {
		return m, nil
	}
	return m, m.loadChatCmd(next)
}

// enterRename switches the input line into rename mode, seeded with the
// current title.
func (m Model) enterRename() (tea.Model, tea.Cmd) {
	session := m.snap.CurrentChat()
	if session == nil || session.IsTemporary {
		return m, nil
	}
	m.inputMode = inputRename
	m.input.Placeholder = "New title..."
	m.input.SetValue(session.DisplayTitle())
	m.input.CursorEnd()
	return m, nil
}

// nextMode cycles default -> news -> law -> default.
func nextMode(mode model.Mode) model.Mode {
	switch mode.OrDefault() {
	case model.ModeDefault:
		return model.ModeNews
	case model.ModeNews:
		return model.ModeLaw
	default:
		return model.ModeDefault
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// resize recomputes component sizes for a new terminal geometry.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.Resize(width, height)

	// Header, input container and status bar share the column with the
	// message viewport.
	viewportHeight := height - headerHeight - inputHeight - statusHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}

	m.input.SetWidth(width - 6)

	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}
}

// =============================================================================
// ENGINE COMMANDS
// =============================================================================

// Engine commands run off the UI goroutine; completion state comes back
// through the change-notification bridge, failures through engineErrMsg.

func (m Model) sendMessageCmd(chatID, content string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.SendMessage(context.Background(), chatID, content); err != nil {
			return engineErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) renameChatCmd(chatID, title string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.RenameChat(context.Background(), chatID, title); err != nil {
			return engineErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) deleteChatCmd(chatID string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.DeleteChat(context.Background(), chatID); err != nil {
			return engineErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) loadChatCmd(chatID string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.LoadChat(context.Background(), chatID); err != nil {
			return engineErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) refreshHistoryCmd() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		eng.RefreshHistory(context.Background())
		return nil
	}
}

// rebuildViewport re-renders the message log into the viewport.
func (m *Model) rebuildViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}
