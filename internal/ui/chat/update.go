// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/bondchat-tui/internal/session"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)

	case SessionUpdateMsg:
		m.applySnapshot(msg.Snapshot)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Submit):
			m.submit()
			return m, tea.Batch(cmds...)

		case key.Matches(msg, m.keyMap.Cancel):
			if m.snapshot.IsSending {
				m.controller.ClearChatSession()
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, m.keyMap.Clear):
			m.controller.ClearChatSession()
			return m, tea.Batch(cmds...)

		case key.Matches(msg, m.keyMap.Up),
			key.Matches(msg, m.keyMap.Down),
			key.Matches(msg, m.keyMap.PageUp),
			key.Matches(msg, m.keyMap.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		cmds = append(cmds, inputCmd)
	}

	return m, tea.Batch(cmds...)
}

// submit hands the input line to the controller. The controller rejects
// empty prompts and double sends; the input is only cleared when the
// turn was accepted.
func (m *Model) submit() {
	if m.controller.SendMessage(session.SendOptions{Prompt: m.input.Value()}) {
		m.input.SetValue("")
	}
}

// applySnapshot installs a new session snapshot and re-renders the
// transcript.
func (m *Model) applySnapshot(snap session.Snapshot) {
	m.snapshot = snap
	if m.ready {
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
	}
}

// handleResize recomputes layout. Header, input, and status bar take a
// fixed five lines; the viewport gets the rest.
func (m *Model) handleResize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.input.Width = width - 6
	m.rebuildMarkdown()

	viewportHeight := height - 5
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
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
