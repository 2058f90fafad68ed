// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wire

import (
	"testing"

	"github.com/jeranaias/bondchat-tui/internal/model"
)

// =============================================================================
// DECODE TESTS
// =============================================================================

func TestDecodeTextFrame(t *testing.T) {
	f := Frame{ID: "5", Role: "assistant", Type: "text", ThreadID: "t1", Body: "  hello  "}
	msg := Decode(f)

	if msg.ID != "5" {
		t.Errorf("Expected ID 5, got %s", msg.ID)
	}
	if msg.Role != model.RoleAssistant {
		t.Errorf("Expected assistant role, got %s", msg.Role)
	}
	if msg.Kind != model.KindText {
		t.Errorf("Expected text kind, got %v", msg.Kind)
	}
	if msg.Text != "hello" {
		t.Errorf("Body must be trimmed, got %q", msg.Text)
	}
	if msg.ThreadID != "t1" {
		t.Errorf("Expected thread t1, got %s", msg.ThreadID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Decode must stamp a timestamp")
	}
}

func TestDecodeStripsNestedMarkup(t *testing.T) {
	f := Frame{Role: "assistant", Type: "text", Body: "a <b>bold</b> word"}
	msg := Decode(f)
	if msg.Text != "a bold word" {
		t.Errorf("Expected stripped body, got %q", msg.Text)
	}
}

func TestDecodePNGImage(t *testing.T) {
	f := Frame{Role: "assistant", Type: "image_file", Body: "data:image/png;base64,AAAA"}
	msg := Decode(f)

	if msg.Kind != model.KindImage {
		t.Fatalf("Expected image kind, got %v", msg.Kind)
	}
	if msg.ImageBase64 != "AAAA" {
		t.Errorf("Expected payload AAAA, got %q", msg.ImageBase64)
	}
	if msg.Text != model.ImagePlaceholder {
		t.Errorf("Image text must be the placeholder, got %q", msg.Text)
	}
}

func TestDecodeGenericImageSubtype(t *testing.T) {
	f := Frame{Role: "assistant", Type: "image_file", Body: "data:image/webp;base64,QkJC"}
	msg := Decode(f)
	if msg.Kind != model.KindImage || msg.ImageBase64 != "QkJC" {
		t.Errorf("webp data URI must decode as image, got %+v", msg)
	}
}

func TestDecodeImageFrameWithoutDataURI(t *testing.T) {
	// An image-typed frame with an unrecognizable body degrades to text.
	f := Frame{Role: "assistant", Type: "image_file", Body: "the image failed"}
	msg := Decode(f)

	if msg.Kind != model.KindText {
		t.Errorf("Expected degraded text kind, got %v", msg.Kind)
	}
	if msg.Text != "the image failed" {
		t.Errorf("Expected raw body as text, got %q", msg.Text)
	}
	if msg.ImageBase64 != "" {
		t.Errorf("No payload expected, got %q", msg.ImageBase64)
	}
}

func TestDecodeImageEmptyPayload(t *testing.T) {
	f := Frame{Role: "assistant", Type: "image_file", Body: "data:image/png;base64,"}
	msg := Decode(f)
	if msg.Kind != model.KindText {
		t.Errorf("Empty payload must degrade to text, got %v", msg.Kind)
	}
}

func TestDecodeDefaultsRole(t *testing.T) {
	msg := Decode(Frame{Type: "text", Body: "x"})
	if msg.Role != model.RoleAssistant {
		t.Errorf("Missing role must default to assistant, got %s", msg.Role)
	}
}

func TestDecodeErrorFlag(t *testing.T) {
	f := Frame{Role: "system", Type: "text", IsError: true, Body: "mid-stream failure"}
	msg := Decode(f)
	if !msg.IsError {
		t.Error("is_error must carry through to the message")
	}
}

// =============================================================================
// SENTINEL TESTS
// =============================================================================

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		name string
		f    Frame
		want bool
	}{
		{"success sentinel", Frame{ID: "-1", Role: "system", IsDone: true, Body: "Done."}, true},
		{"error sentinel", Frame{ID: "-1", Role: "system", IsDone: true, IsError: true, Body: "boom"}, true},
		{"wrong id", Frame{ID: "1", Role: "system", IsDone: true}, false},
		{"wrong role", Frame{ID: "-1", Role: "assistant", IsDone: true}, false},
		{"not done", Frame{ID: "-1", Role: "system"}, false},
	}
	for _, tt := range tests {
		if got := tt.f.IsSentinel(); got != tt.want {
			t.Errorf("%s: IsSentinel() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBoolAttr(t *testing.T) {
	if !boolAttr("true") || !boolAttr("TRUE") || !boolAttr(" True ") {
		t.Error("true spellings must parse as true")
	}
	if boolAttr("false") || boolAttr("1") || boolAttr("") || boolAttr("yes") {
		t.Error("anything but true must parse as false")
	}
}
