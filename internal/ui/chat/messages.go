// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/bondchat-tui/internal/model"
	"github.com/jeranaias/bondchat-tui/internal/ui/components"
	"github.com/jeranaias/bondchat-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// renderTranscript renders the full message list plus any in-progress
// preview into viewport content.
func (m *Model) renderTranscript() string {
	var b strings.Builder

	if len(m.snapshot.Messages) == 0 && !m.snapshot.HasPartial {
		b.WriteString(m.theme.PartialText.Render("No messages yet. Say something."))
		return b.String()
	}

	for i, msg := range m.snapshot.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}

	if m.snapshot.HasPartial {
		if len(m.snapshot.Messages) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderPartial())
	}

	return b.String()
}

// renderMessage renders one settled message: a role label line, then
// the body.
func (m *Model) renderMessage(msg model.ChatMessage) string {
	var b strings.Builder

	b.WriteString(m.roleLabel(msg))
	b.WriteString("\n")

	switch {
	case msg.IsError:
		b.WriteString(m.theme.ErrorBox.Render(msg.Text))

	case msg.IsImage():
		b.WriteString(m.theme.ImageBadge.Render(model.ImagePlaceholder))

	default:
		b.WriteString(m.renderBody(msg))
	}

	return b.String()
}

// renderBody renders a settled text body, through glamour when markdown
// is enabled and through the chroma code fence path otherwise.
func (m *Model) renderBody(msg model.ChatMessage) string {
	if msg.Role == model.RoleAssistant && m.markdown != nil {
		if rendered, err := m.markdown.Render(msg.Text); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	if msg.Role == model.RoleAssistant && strings.Contains(msg.Text, "```") {
		return components.RenderCodeBlocks(msg.Text, m.width)
	}
	return m.theme.MessageText.Render(msg.Text)
}

// renderPartial renders the live preview of the in-flight agent
// message. Plain text only; partials are re-rendered on every chunk, so
// the expensive markdown pass waits until the message settles.
func (m *Model) renderPartial() string {
	label := m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())
	body := m.theme.PartialText.Render(m.snapshot.Partial)
	return label + " " + m.spinner.View() + "\n" + body
}

// roleLabel renders "You", "Agent", or "System", with the timestamp
// when enabled.
func (m *Model) roleLabel(msg model.ChatMessage) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	case model.RoleAssistant:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	default:
		label = m.theme.SystemLabel.Render(msg.Role.DisplayName())
	}

	if m.ui.ShowTimestamps && !msg.Timestamp.IsZero() {
		label += " " + m.theme.Timestamp.Render(util.FormatTimestamp(msg.Timestamp))
	}
	return label
}
