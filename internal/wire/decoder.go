// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Frame decoder: converts complete wire frames into chat messages,
// including inline-image extraction from data-URI bodies.

package wire

import (
	"strings"
	"time"

	"github.com/jeranaias/bondchat-tui/internal/model"
)

// Recognized image data-URI prefixes. The generic prefix catches any
// image subtype as long as a comma-delimited base64 payload follows.
const (
	pngPrefix     = "data:image/png;base64,"
	jpegPrefix    = "data:image/jpeg;base64,"
	genericPrefix = "data:image/"
)

// Decode converts a frame into a chat message. Decoding never fails:
// any unexpected shape degrades to a plain text message built from the
// stripped body, so callers have a single rendering path.
func Decode(f Frame) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        f.ID,
		Role:      model.Role(f.Role),
		Kind:      model.KindText,
		IsError:   f.IsError,
		ThreadID:  f.ThreadID,
		Timestamp: time.Now(),
	}
	if msg.Role == "" {
		msg.Role = model.RoleAssistant
	}

	if f.Type == "image_file" {
		if payload, ok := imagePayload(f.Body); ok {
			msg.Kind = model.KindImage
			msg.ImageBase64 = payload
			msg.Text = model.ImagePlaceholder
			return msg
		}
	}

	msg.Text = strings.TrimSpace(StripMarkup(f.Body))
	return msg
}

// imagePayload extracts the base64 payload from an image data-URI body.
func imagePayload(body string) (string, bool) {
	body = strings.TrimSpace(body)

	recognized := strings.HasPrefix(body, pngPrefix) ||
		strings.HasPrefix(body, jpegPrefix) ||
		strings.HasPrefix(body, genericPrefix)
	if !recognized {
		return "", false
	}

	comma := strings.Index(body, ",")
	if comma < 0 || comma == len(body)-1 {
		return "", false
	}
	return body[comma+1:], true
}
