// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI. It renders
// session snapshots; all conversation state lives in the session
// controller, never in the view.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/bondchat-tui/internal/config"
	"github.com/jeranaias/bondchat-tui/internal/session"
	"github.com/jeranaias/bondchat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SessionUpdateMsg carries a fresh session snapshot into the Bubble Tea
// loop. The controller's OnUpdate callback sends these via
// tea.Program.Send, which is the only legal way to cross from the
// stream goroutine into the UI.
type SessionUpdateMsg struct {
	Snapshot session.Snapshot
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Conversation; owned by the controller, mirrored here as the last
	// received snapshot.
	controller *session.Controller
	snapshot   session.Snapshot

	// Styling
	theme *styles.Theme
	ui    config.UIConfig

	// Dimensions
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Markdown renderer, rebuilt on resize so word wrap tracks width.
	markdown *glamour.TermRenderer

	keyMap KeyMap
}

// New creates a chat view bound to a session controller.
func New(controller *session.Controller, ui config.UIConfig) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	return Model{
		controller: controller,
		snapshot:   controller.Snapshot(),
		theme:      theme,
		ui:         ui,
		input:      input,
		spinner:    sp,
		keyMap:     DefaultKeyMap(),
	}
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// rebuildMarkdown recreates the glamour renderer for the current width.
func (m *Model) rebuildMarkdown() {
	if !m.ui.Markdown {
		m.markdown = nil
		return
	}
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}
