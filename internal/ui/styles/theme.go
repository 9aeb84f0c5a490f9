// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the styled components for the application.
type Theme struct {
	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMode  lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	ErrorBubble    lipgloss.Style
	StreamingText  lipgloss.Style
	SourceLine     lipgloss.Style

	// ==========================================================================
	// PROGRESS AND SPINNER STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	StatusBar      lipgloss.Style
	StatusOnline   lipgloss.Style
	StatusOffline  lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
	ErrorBanner    lipgloss.Style
}

// Palette colors, dark-terminal first with light fallbacks.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	colorSubtle  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	colorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#DDDDDD"}
	colorError   = lipgloss.AdaptiveColor{Light: "#C7415B", Dark: "#ED567A"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#107E52", Dark: "#2ECC8F"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#A8770B", Dark: "#E5C07B"}
)

// NewTheme builds the default theme for the given terminal size.
func NewTheme(width, height int) *Theme {
	t := &Theme{Width: width, Height: height}

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(colorSubtle).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	t.HeaderMode = lipgloss.NewStyle().
		Foreground(colorWarn).
		Bold(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	t.UserBubble = lipgloss.NewStyle().Foreground(colorText)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(colorError).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorError).
		Padding(0, 1)
	t.StreamingText = lipgloss.NewStyle().Foreground(colorText).Italic(true)
	t.SourceLine = lipgloss.NewStyle().Foreground(colorSubtle)

	t.Spinner = lipgloss.NewStyle().Foreground(colorAccent)
	t.ThinkingText = lipgloss.NewStyle().Foreground(colorSubtle).Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorSubtle).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().Foreground(colorSubtle)
	t.StatusOnline = lipgloss.NewStyle().Foreground(colorSuccess)
	t.StatusOffline = lipgloss.NewStyle().Foreground(colorError)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(colorSubtle)
	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Padding(0, 1)

	return t
}

// Resize updates the stored terminal dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
}
