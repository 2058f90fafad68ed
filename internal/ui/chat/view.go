// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/bondchat-tui/internal/session"
	"github.com/jeranaias/bondchat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the complete chat view.
// Layout: header (1) + transcript (viewport) + input (3) + status (1).
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
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

func (m Model) renderHeader() string {
	title := m.theme.HeaderBrand.Render("bondchat")
	return m.theme.Header.Width(m.width).Render(title)
}

func (m Model) renderInput() string {
	prompt := m.theme.InputPrompt.Render("> ")
	return m.theme.InputContainer.Width(m.width).Render(prompt + m.input.View())
}

// renderStatusBar shows the phase, thread id, and cancel hint.
func (m Model) renderStatusBar() string {
	var phase string
	switch m.snapshot.Phase {
	case session.PhaseSending, session.PhaseStreaming:
		phase = m.theme.PhaseBusy.Render(m.spinner.View() + m.snapshot.Phase.String())
	case session.PhaseDone:
		phase = m.theme.PhaseDone.Render(m.snapshot.Phase.String())
	case session.PhaseFailed:
		phase = m.theme.PhaseFailed.Render(m.snapshot.Phase.String())
	default:
		phase = m.theme.PhaseIdle.Render(m.snapshot.Phase.String())
	}

	thread := "no thread"
	if m.snapshot.ThreadID != "" {
		thread = "thread " + m.snapshot.ThreadID
	}

	left := phase + "  " + m.theme.ThreadID.Render(thread)
	hint := m.theme.ThreadID.Render("Enter send · Esc cancel · C-l new · C-c quit")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hint) - 2
	if gap < 1 {
		return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(left, m.width-2))
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + hint)
}
