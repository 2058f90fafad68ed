// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/jeranaias/bondchat-tui/internal/model"
)

const sentinelOK = `<_bondmessage id="-1" role="system" is_done="true">Done.</_bondmessage>`

// =============================================================================
// SEND LIFECYCLE TESTS
// =============================================================================

func TestBeginSendFromIdle(t *testing.T) {
	s := NewState()
	if !s.beginSend("") {
		t.Fatal("beginSend from idle must succeed")
	}
	if s.Phase() != PhaseSending {
		t.Errorf("Expected sending phase, got %s", s.Phase())
	}
	if !s.IsSending() {
		t.Error("IsSending must be true after beginSend")
	}
}

func TestBeginSendSingleFlight(t *testing.T) {
	s := NewState()
	if !s.beginSend("") {
		t.Fatal("first beginSend must succeed")
	}
	if s.beginSend("") {
		t.Error("second beginSend while in flight must be rejected")
	}
}

func TestBeginSendAfterSettled(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.applyChunk(sentinelOK)

	if s.Phase() != PhaseDone {
		t.Fatalf("Expected done, got %s", s.Phase())
	}
	if !s.beginSend("") {
		t.Error("beginSend from a settled phase must succeed")
	}
}

func TestBeginSendAdoptsExplicitThread(t *testing.T) {
	s := NewState()
	s.beginSend("t42")
	if s.ThreadID() != "t42" {
		t.Errorf("Explicit thread must be adopted, got %q", s.ThreadID())
	}
}

func TestExplicitThreadBeatsStreamed(t *testing.T) {
	s := NewState()
	s.beginSend("explicit")
	s.applyChunk(`<_bondmessage id="1" role="assistant" thread_id="streamed">hi</_bondmessage>`)

	if s.ThreadID() != "explicit" {
		t.Errorf("Streamed thread_id must not overwrite the explicit one, got %q", s.ThreadID())
	}
}

// =============================================================================
// CHUNK APPLICATION TESTS
// =============================================================================

// TestTwoChunkExchange walks a full exchange where the frame boundary
// falls mid-body between network chunks.
func TestTwoChunkExchange(t *testing.T) {
	s := NewState()
	if !s.beginSend("") {
		t.Fatal("beginSend failed")
	}

	// Chunk 1 ends mid-body: nothing commits, preview appears.
	settled := s.applyChunk(`<_bondmessage id="1" role="assistant" type="text" thread_id="t1">Hel`)
	if settled {
		t.Fatal("Session must not settle on a partial frame")
	}
	if len(s.Messages()) != 0 {
		t.Fatalf("No message may commit before the frame closes, got %d", len(s.Messages()))
	}
	if p, ok := s.Partial(); !ok || p != "Hel" {
		t.Errorf("Expected partial %q, got %q (ok=%v)", "Hel", p, ok)
	}
	if s.Phase() != PhaseStreaming {
		t.Errorf("Expected streaming, got %s", s.Phase())
	}

	// Chunk 2 closes the frame and delivers the sentinel.
	settled = s.applyChunk(`lo</_bondmessage>` + sentinelOK)
	if !settled {
		t.Fatal("Sentinel must settle the session")
	}

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected exactly 1 message, got %d", len(msgs))
	}
	if msgs[0].Text != "Hello" {
		t.Errorf("Expected reassembled body Hello, got %q", msgs[0].Text)
	}
	if s.ThreadID() != "t1" {
		t.Errorf("Expected adopted thread t1, got %q", s.ThreadID())
	}
	if s.Phase() != PhaseDone {
		t.Errorf("Expected done, got %s", s.Phase())
	}
	if s.IsSending() {
		t.Error("IsSending must be false after settling")
	}
	if _, ok := s.Partial(); ok {
		t.Error("Partial must be cleared on settle")
	}
}

func TestSentinelNeverVisible(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.applyChunk(`<_bondmessage id="1" role="assistant">answer</_bondmessage>` + sentinelOK)

	for _, m := range s.Messages() {
		if m.Text == "Done." {
			t.Error("Sentinel body must never appear in the message list")
		}
	}
	if len(s.Messages()) != 1 {
		t.Errorf("Expected 1 visible message, got %d", len(s.Messages()))
	}
}

func TestErrorSentinel(t *testing.T) {
	s := NewState()
	s.beginSend("")
	settled := s.applyChunk(`<_bondmessage id="-1" role="system" is_done="true" is_error="true">agent exploded</_bondmessage>`)

	if !settled {
		t.Fatal("Error sentinel must settle the session")
	}
	if s.Phase() != PhaseFailed {
		t.Errorf("Expected failed, got %s", s.Phase())
	}
	if s.ErrorText() != "agent exploded" {
		t.Errorf("Expected error text preserved, got %q", s.ErrorText())
	}
	if len(s.Messages()) != 0 {
		t.Errorf("Error sentinel is not a visible message, got %d", len(s.Messages()))
	}
}

func TestFramesAfterSentinelIgnored(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.applyChunk(sentinelOK + `<_bondmessage id="9" role="assistant">late</_bondmessage>`)

	if len(s.Messages()) != 0 {
		t.Errorf("Frames after the sentinel must be dropped, got %d messages", len(s.Messages()))
	}
	if s.Phase() != PhaseDone {
		t.Errorf("Expected done, got %s", s.Phase())
	}
}

func TestStreamedThreadAdoptedOnce(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.applyChunk(`<_bondmessage id="1" role="assistant" thread_id="first">a</_bondmessage>` +
		`<_bondmessage id="2" role="assistant" thread_id="second">b</_bondmessage>`)

	if s.ThreadID() != "first" {
		t.Errorf("Only the first streamed thread_id may be adopted, got %q", s.ThreadID())
	}
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ThreadID != "first" {
		t.Errorf("Message 1 thread: %q", msgs[0].ThreadID)
	}
}

// =============================================================================
// TRUNCATION TESTS
// =============================================================================

func TestFinishStreamWithoutSentinel(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.applyChunk(`<_bondmessage id="1" role="assistant">partial answer</_bondmessage>`)
	s.finishStream(nil)

	if s.Phase() != PhaseFailed {
		t.Errorf("Truncated stream must fail the session, got %s", s.Phase())
	}
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected original message plus synthesized error, got %d", len(msgs))
	}
	last := msgs[len(msgs)-1]
	if !last.IsError {
		t.Error("Synthesized message must be error-flagged")
	}
	if !strings.Contains(last.Text, "incomplete response") {
		t.Errorf("Unexpected error text: %q", last.Text)
	}
}

func TestFinishStreamWithCause(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.finishStream(errors.New("connection reset"))

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 synthesized message, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "connection reset") {
		t.Errorf("Cause must appear in the diagnostic: %q", msgs[0].Text)
	}
}

func TestFinishStreamAfterSettleIsNoop(t *testing.T) {
	s := NewState()
	s.beginSend("")
	s.applyChunk(sentinelOK)
	s.finishStream(errors.New("late close"))

	if s.Phase() != PhaseDone {
		t.Errorf("finishStream after sentinel must not change phase, got %s", s.Phase())
	}
	if len(s.Messages()) != 0 {
		t.Errorf("No error may be synthesized after a clean settle, got %d messages", len(s.Messages()))
	}
}

// =============================================================================
// RESET AND HISTORY TESTS
// =============================================================================

func TestReset(t *testing.T) {
	s := NewState()
	s.beginSend("t1")
	s.applyChunk(`<_bondmessage id="1" role="assistant">hi</_bondmessage>`)
	s.reset()

	if s.Phase() != PhaseIdle {
		t.Errorf("Expected idle after reset, got %s", s.Phase())
	}
	if s.ThreadID() != "" || len(s.Messages()) != 0 || s.IsSending() {
		t.Error("Reset must clear all state")
	}
}

func TestLoadHistory(t *testing.T) {
	s := NewState()
	hist := []model.ChatMessage{
		model.NewChatMessage(model.RoleUser, "earlier question"),
		model.NewChatMessage(model.RoleAssistant, "earlier answer"),
	}
	if !s.loadHistory(hist) {
		t.Fatal("loadHistory while idle must succeed")
	}
	if len(s.Messages()) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(s.Messages()))
	}

	s.beginSend("")
	if s.loadHistory(nil) {
		t.Error("loadHistory while sending must be rejected")
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewState()
	s.loadHistory([]model.ChatMessage{model.NewChatMessage(model.RoleUser, "a")})

	got := s.Messages()
	got[0].Text = "mutated"
	if s.Messages()[0].Text != "a" {
		t.Error("Messages must return a copy, not the backing slice")
	}
}
