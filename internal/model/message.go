// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and turns.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message or turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Agent"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// CONTENT KIND
// =============================================================================

// ContentKind distinguishes text messages from inline images.
type ContentKind int

const (
	KindText ContentKind = iota
	KindImage
)

// String returns the string representation of the content kind.
func (k ContentKind) String() string {
	switch k {
	case KindImage:
		return "image"
	default:
		return "text"
	}
}

// ImagePlaceholder is the fixed display text for image messages.
const ImagePlaceholder = "[Image]"

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// ChatMessage is the decoded, UI-facing unit of conversation. A message
// is owned exclusively by one session's message list and is never
// shared across sessions.
type ChatMessage struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content. Text always holds something renderable: the stripped
	// body for text messages, or ImagePlaceholder for images.
	Kind        ContentKind `json:"kind"`
	Text        string      `json:"text"`
	ImageBase64 string      `json:"image_base64,omitempty"`

	// Error flag for mid-stream error frames.
	IsError bool `json:"is_error,omitempty"`

	// ThreadID is empty until the session adopts a thread.
	ThreadID string `json:"thread_id,omitempty"`
}

// NewChatMessage creates a message with a generated ID.
func NewChatMessage(role Role, text string) ChatMessage {
	return ChatMessage{
		ID:        generateID(),
		Role:      role,
		Kind:      KindText,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage creates an error-flagged system message, used when
// the client itself must report a failure (e.g. a truncated stream).
func NewErrorMessage(text string) ChatMessage {
	msg := NewChatMessage(RoleSystem, text)
	msg.IsError = true
	return msg
}

// IsImage reports whether the message carries an inline image.
func (m ChatMessage) IsImage() bool {
	return m.Kind == KindImage
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m ChatMessage) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if len(runes) <= maxLen {
		return m.Text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m ChatMessage) IsEmpty() bool {
	return m.Text == "" && m.ImageBase64 == ""
}

// =============================================================================
// TURNS
// =============================================================================

// FileRef is an opaque reference to an uploaded attachment, returned by
// the upload collaborator and echoed back when building a turn.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TurnRequest describes one outbound submission that triggers a new
// streamed response.
type TurnRequest struct {
	// TurnID uniquely identifies this submission.
	TurnID string `json:"turn_id"`

	// AgentID selects the remote agent.
	AgentID string `json:"agent_id"`

	// ThreadID is empty when the server should create a new thread and
	// report its id on the first frame of the response.
	ThreadID string `json:"thread_id,omitempty"`

	// Prompt is the turn text.
	Prompt string `json:"prompt"`

	// Role is "user" for normal turns; callers may override it with
	// "system" to inject out-of-band notification turns.
	Role Role `json:"role"`

	// Attachments are opaque references from the upload collaborator.
	Attachments []FileRef `json:"attachments,omitempty"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
