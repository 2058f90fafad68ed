// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Incremental frame parser.
//
// The caller owns an ever-growing text buffer (each network chunk is
// appended as it arrives) and repeatedly asks for the complete frames
// accumulated so far. Because sibling frames share no document root,
// the buffer is wrapped in a single synthetic root element before
// structural parsing, then children are enumerated in document order.
// An element whose closing tag has not arrived yet is never emitted;
// it stays in the remainder for the next call.

package wire

import (
	"encoding/xml"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	syntheticRootOpen  = "<stream>"
	syntheticRootClose = "</stream>"

	// diagnosticSnippetLen caps how much raw input is echoed back in a
	// synthetic error frame diagnostic.
	diagnosticSnippetLen = 120
)

var (
	// startTagRe matches a frame start tag, closed or not yet closed.
	startTagRe = regexp.MustCompile(`<` + FrameTag + `\b[^>]*>`)

	// roleAttrRe extracts the role attribute from a raw start tag.
	roleAttrRe = regexp.MustCompile(`\brole\s*=\s*"([^"]*)"`)

	// markupRe matches any embedded tag for StripMarkup.
	markupRe = regexp.MustCompile(`<[^>]*>`)
)

// =============================================================================
// COMPLETE FRAME EXTRACTION
// =============================================================================

// ExtractCompleteFrames scans buffer for closed top-level frames and
// returns them in document order, together with the unconsumed
// remainder (everything after the last complete frame). An open frame
// is left in the remainder untouched.
//
// The empty buffer yields zero frames and no remainder. Garbage that
// never forms a frame also yields zero frames here; whole-response
// callers that need an explicit failure use ParseResponse instead.
func ExtractCompleteFrames(buffer string) ([]Frame, string) {
	if buffer == "" {
		return nil, ""
	}

	wrapped := syntheticRootOpen + buffer + syntheticRootClose
	dec := xml.NewDecoder(strings.NewReader(wrapped))
	dec.Strict = false

	var frames []Frame
	consumed := 0 // bytes of buffer covered by complete frames
	depth := 0

	// Pending top-level frame: attributes plus the offset where its
	// body begins in the wrapped string.
	var pendingAttrs []xml.Attr
	pendingBody := -1

	for {
		tokenStart := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			// EOF or malformed nesting: everything completed so far
			// stands, the rest stays in the remainder.
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && pendingBody < 0 && t.Name.Local == FrameTag {
				pendingAttrs = append([]xml.Attr(nil), t.Attr...)
				pendingBody = int(dec.InputOffset())
			}
		case xml.EndElement:
			// The non-strict decoder invents end tags for elements still
			// open when the synthetic root closes (or when nesting is
			// mismatched). An invented end tag has no source text at
			// tokenStart, so only a physically present close tag commits
			// the frame; anything else stays in the remainder.
			if depth == 2 && pendingBody >= 0 && t.Name.Local == FrameTag &&
				strings.HasPrefix(wrapped[tokenStart:], "</"+FrameTag) {
				body := wrapped[pendingBody:tokenStart]
				frames = append(frames, frameFromAttrs(pendingAttrs, body))
				pendingAttrs = nil
				pendingBody = -1
				consumed = int(dec.InputOffset()) - len(syntheticRootOpen)
			}
			depth--
		}
	}

	if consumed < 0 {
		consumed = 0
	}
	if consumed > len(buffer) {
		consumed = len(buffer)
	}
	return frames, buffer[consumed:]
}

// ParseResponse parses a complete (non-streaming) response body. Unlike
// ExtractCompleteFrames it never returns an empty result for non-empty
// input: an empty buffer, garbage with no recognizable frame, or a
// structural parse failure all surface as a single synthetic error
// frame so callers always have something to render.
func ParseResponse(buffer string) []Frame {
	if strings.TrimSpace(buffer) == "" {
		return []Frame{NewErrorFrame("empty response from agent")}
	}

	frames, remainder := ExtractCompleteFrames(buffer)
	if len(frames) == 0 {
		return []Frame{NewErrorFrame("no recognizable message in response: " + snippet(remainder))}
	}
	return frames
}

// frameFromAttrs builds a frame from a start tag's attributes and its
// raw body, defaulting optional attributes.
func frameFromAttrs(attrs []xml.Attr, body string) Frame {
	f := Frame{Type: "text", Body: body}
	for _, a := range attrs {
		switch a.Name.Local {
		case "id":
			f.ID = a.Value
		case "role":
			f.Role = a.Value
		case "type":
			f.Type = a.Value
		case "thread_id":
			f.ThreadID = a.Value
		case "is_done":
			f.IsDone = boolAttr(a.Value)
		case "is_error":
			f.IsError = boolAttr(a.Value)
		}
	}
	return f
}

// =============================================================================
// IN-PROGRESS PREVIEW
// =============================================================================

// PreviewInProgress returns a best-effort view of the body of the first
// assistant frame in the buffer, even when its closing tag has not
// arrived yet. It exists purely for live display before the frame
// closes and is never authoritative; committed messages come only from
// ExtractCompleteFrames.
//
// Returns false when no assistant start tag is present. Open frames
// with other roles (notably system control frames) are not previewed.
func PreviewInProgress(buffer string) (string, bool) {
	for _, loc := range startTagRe.FindAllStringIndex(buffer, -1) {
		tag := buffer[loc[0]:loc[1]]
		if m := roleAttrRe.FindStringSubmatch(tag); m == nil || m[1] != "assistant" {
			continue
		}

		body := buffer[loc[1]:]
		if end := strings.Index(body, "</"+FrameTag+">"); end >= 0 {
			body = body[:end]
		}
		return StripMarkup(body), true
	}
	return "", false
}

// StripMarkup removes any nested markup from a body string, leaving
// plain text. Idempotent: stripping an already-stripped string is a
// no-op.
func StripMarkup(text string) string {
	return markupRe.ReplaceAllString(text, "")
}

// snippet truncates raw input for inclusion in a diagnostic, cutting on
// a rune boundary so the diagnostic stays valid UTF-8.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= diagnosticSnippetLen {
		return s
	}
	cut := diagnosticSnippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
