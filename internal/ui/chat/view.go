// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chatsync-tui/internal/model"
)

// Fixed row counts for the non-viewport chrome.
const (
	headerHeight = 2
	inputHeight  = 3
	statusHeight = 1
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat surface.
func (m Model) View() string {
	if !m.ready {
		return "Starting chatsync..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := "New Chat"
	if session := m.snap.CurrentChat(); session != nil {
		title = session.DisplayTitle()
		if session.IsTemporary {
			title += " (unsaved)"
		}
	}
	title = runewidth.Truncate(title, m.width-24, "…")

	left := m.theme.HeaderTitle.Render(title)
	mode := m.theme.HeaderMode.Render("[" + strings.ToUpper(string(m.snap.Mode.OrDefault())) + "]")

	conn := m.theme.StatusOffline.Render("● offline")
	if m.snap.Connected {
		conn = m.theme.StatusOnline.Render("● online")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(mode) - lipgloss.Width(conn) - 4
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + mode + " " + conn
	return m.theme.Header.Width(m.width - 2).Render(line)
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

// renderMessages builds the viewport content from the current snapshot.
func (m Model) renderMessages() string {
	session := m.snap.CurrentChat()

	var b strings.Builder

	if session == nil || len(session.Messages) == 0 {
		b.WriteString(m.theme.ThinkingText.Render("No messages yet. Type below to start."))
		b.WriteString("\n")
	} else {
		for i := range session.Messages {
			b.WriteString(m.renderMessage(&session.Messages[i]))
			b.WriteString("\n")
		}
	}

	if m.snap.IsAssistantTyping {
		b.WriteString(m.renderTypingIndicator())
		b.WriteString("\n")
	}

	return b.String()
}

// renderMessage renders one message with its role label.
func (m Model) renderMessage(msg *model.Message) string {
	if msg.IsErrorBubble() {
		return m.theme.ErrorBubble.Render(msg.Content()) + "\n"
	}

	var b strings.Builder
	switch msg.Role {
	case model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(m.theme.UserBubble.Render(msg.Content()))
		b.WriteString("\n")

	case model.RoleAssistant:
		b.WriteString(m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		if msg.Status == model.StatusStreaming {
			b.WriteString(m.theme.StreamingText.Render(msg.Content() + "▌"))
		} else {
			b.WriteString(m.renderMarkdown(msg.Content()))
		}
		b.WriteString("\n")
		b.WriteString(m.renderSources(msg.Sources))
	}
	return b.String()
}

// renderMarkdown renders assistant content through glamour, falling back
// to plain text if rendering fails.
func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// renderSources renders citation lines beneath an assistant message.
func (m Model) renderSources(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	for i, src := range sources {
		label := src.Title
		if label == "" {
			label = src.URL
		}
		line := fmt.Sprintf("  [%d] %s", i+1, runewidth.Truncate(label, m.width-10, "…"))
		b.WriteString(m.theme.SourceLine.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// renderTypingIndicator shows the spinner plus the latest progress line
// while a turn is in flight.
func (m Model) renderTypingIndicator() string {
	line := "Thinking..."
	if m.snap.StreamingMessageID != "" {
		if p, ok := m.snap.LatestProgress(m.snap.StreamingMessageID); ok {
			line = p.DisplayLine()
		}
	} else {
		// Before the first chunk only progress descriptors exist; show
		// whichever turn is reporting.
		for _, p := range m.snap.MessageProgress {
			if l := p.DisplayLine(); l != "" {
				line = l
				break
			}
		}
	}
	return m.theme.Spinner.Render(m.spinner.View()) + " " + m.theme.ThinkingText.Render(line)
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	if m.inputMode == inputRename {
		prompt := m.theme.HeaderMode.Render("Rename: ")
		return m.theme.InputContainer.Width(m.width - 2).Render(prompt + m.input.View())
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	if m.localErr != "" {
		return m.theme.ErrorBanner.Render(runewidth.Truncate(m.localErr, m.width-4, "…"))
	}
	if m.snap.Error != "" {
		return m.theme.ErrorBanner.Render(
			runewidth.Truncate(m.snap.Error+" (esc to dismiss)", m.width-4, "…"))
	}

	bindings := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+n", "new"},
		{"ctrl+o", "next"},
		{"ctrl+r", "rename"},
		{"ctrl+d", "delete"},
		{"tab", "mode"},
		{"esc", "cancel"},
		{"ctrl+c", "quit"},
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts,
			m.theme.ShortcutKey.Render(b.key)+" "+m.theme.ShortcutDesc.Render(b.desc))
	}
	return m.theme.StatusBar.Render(" " + strings.Join(parts, "  "))
}
