// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wire implements the bond streaming wire format.
//
// The agent service streams responses as a sequence of tag-delimited
// records ("frames") of the form:
//
//	<_bondmessage id="..." role="assistant" type="text" thread_id="..."
//	              is_done="false" is_error="false">BODY</_bondmessage>
//
// Frames arrive as consecutive siblings without a shared document root,
// possibly split across network chunks at arbitrary byte offsets. This
// package reconstructs complete frames incrementally and decodes them
// into chat messages.
package wire

import "strings"

// FrameTag is the single recognized element name on the wire.
const FrameTag = "_bondmessage"

// SentinelID marks the terminal control frame that closes a stream.
const SentinelID = "-1"

// =============================================================================
// FRAME
// =============================================================================

// Frame is one complete wire record. Frames are immutable once emitted
// by the parser; Body holds the raw element content, pre-decode.
type Frame struct {
	ID       string
	Role     string
	Type     string
	ThreadID string
	IsDone   bool
	IsError  bool
	Body     string
}

// NewFrame creates a frame with optional attributes defaulted.
func NewFrame(id, role, body string) Frame {
	return Frame{
		ID:   id,
		Role: role,
		Type: "text",
		Body: body,
	}
}

// NewErrorFrame creates a synthetic error frame carrying a diagnostic.
// The parser emits these for malformed or unrecognizable input so
// callers always get feedback for non-empty garbage.
func NewErrorFrame(diagnostic string) Frame {
	return Frame{
		ID:      SentinelID,
		Role:    "system",
		Type:    "text",
		IsError: true,
		Body:    diagnostic,
	}
}

// IsSentinel reports whether this is the terminal control frame
// (id="-1", role="system", is_done="true"). Sentinel frames never
// appear in the visible message list; they only signal termination.
func (f Frame) IsSentinel() bool {
	return f.ID == SentinelID && f.Role == "system" && f.IsDone
}

// boolAttr parses the wire's boolean attribute encoding. Anything other
// than a case-insensitive "true" is false.
func boolAttr(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
