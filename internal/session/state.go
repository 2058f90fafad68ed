// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one conversation's state: the ordered message
// list, the active thread, the send-in-flight flag, and the state
// machine that applies decoded frames as the response stream advances.
package session

import (
	"github.com/jeranaias/bondchat-tui/internal/model"
	"github.com/jeranaias/bondchat-tui/internal/wire"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the lifecycle position of a session.
type Phase int

const (
	PhaseIdle      Phase = iota // Ready for a new turn
	PhaseSending                // Request sent, no chunk received yet
	PhaseStreaming              // Receiving frames
	PhaseDone                   // Settled: sentinel arrived, success
	PhaseFailed                 // Settled: error sentinel or truncation
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the session has reached a terminal phase.
// Settled sessions accept a new turn (they are treated as idle).
func (p Phase) Settled() bool {
	return p == PhaseDone || p == PhaseFailed
}

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the single-writer conversation state. All mutation happens
// on the sequence of chunk-arrival callbacks from one active stream, so
// State itself carries no lock; the Controller serializes access.
type State struct {
	phase    Phase
	threadID string
	sending  bool

	// messages is append-only between resets; insertion order is frame
	// completion order.
	messages []model.ChatMessage

	// partial is the best-effort preview of the in-progress assistant
	// frame. It is not a committed message.
	partial    string
	hasPartial bool

	// remainder holds wire bytes not yet covered by a complete frame.
	remainder string

	// errText is set when the stream settles with an error sentinel.
	errText string
}

// NewState creates an idle session state.
func NewState() *State {
	return &State{phase: PhaseIdle}
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase { return s.phase }

// ThreadID returns the adopted thread id, or "" if none yet.
func (s *State) ThreadID() string { return s.threadID }

// IsSending reports whether an outbound request is active.
func (s *State) IsSending() bool { return s.sending }

// Partial returns the streaming preview text, if any.
func (s *State) Partial() (string, bool) { return s.partial, s.hasPartial }

// ErrorText returns the terminal error diagnostic, if the session
// settled with an error sentinel.
func (s *State) ErrorText() string { return s.errText }

// Messages returns a copy of the visible message list.
func (s *State) Messages() []model.ChatMessage {
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// beginSend moves the session into the sending phase. Returns false
// (a no-op) when a send is already in flight: at most one outbound
// request may be active per session.
//
// An explicit thread id is adopted immediately and is never overwritten
// by a streamed thread_id attribute. With no explicit id and no adopted
// thread, the turn goes out without a thread reference and the server
// reports the new thread's id on the first frame.
func (s *State) beginSend(explicitThread string) bool {
	if s.sending {
		return false
	}
	if s.phase.Settled() {
		s.phase = PhaseIdle
	}
	if s.phase != PhaseIdle {
		return false
	}

	if explicitThread != "" && s.threadID == "" {
		s.threadID = explicitThread
	}
	s.sending = true
	s.partial = ""
	s.hasPartial = false
	s.remainder = ""
	s.errText = ""
	s.phase = PhaseSending
	return true
}

// applyChunk feeds newly arrived stream bytes into the parser and
// applies every completed frame in arrival order. Returns true once the
// session settles (sentinel observed).
func (s *State) applyChunk(chunk string) bool {
	if s.phase == PhaseSending {
		s.phase = PhaseStreaming
	}

	s.remainder += chunk
	frames, rest := wire.ExtractCompleteFrames(s.remainder)
	s.remainder = rest

	for _, f := range frames {
		if f.IsSentinel() {
			if f.IsError {
				s.errText = wire.StripMarkup(f.Body)
			}
			s.settle(f.IsError)
			return true
		}

		msg := wire.Decode(f)
		if s.threadID == "" && msg.ThreadID != "" {
			s.threadID = msg.ThreadID
		}
		if msg.ThreadID == "" {
			msg.ThreadID = s.threadID
		}
		s.messages = append(s.messages, msg)
	}

	if p, ok := wire.PreviewInProgress(s.remainder); ok {
		s.partial = p
		s.hasPartial = true
	} else {
		s.partial = ""
		s.hasPartial = false
	}
	return false
}

// finishStream handles transport termination. If the sentinel already
// settled the session this is a no-op; otherwise the close was
// premature and an error message is synthesized. Timeouts and network
// drops are not distinguished here.
func (s *State) finishStream(cause error) {
	if s.phase.Settled() {
		return
	}

	text := "incomplete response: the stream ended before the agent finished"
	if cause != nil {
		text += " (" + cause.Error() + ")"
	}
	s.messages = append(s.messages, model.NewErrorMessage(text))
	s.errText = text
	s.settle(true)
}

// settle moves to a terminal phase and clears transient stream state.
func (s *State) settle(isError bool) {
	s.sending = false
	s.partial = ""
	s.hasPartial = false
	s.remainder = ""
	if isError {
		s.phase = PhaseFailed
	} else {
		s.phase = PhaseDone
	}
}

// reset returns the session to a blank idle state.
func (s *State) reset() {
	*s = State{phase: PhaseIdle}
}

// loadHistory replaces the message list with previously fetched thread
// history. Only legal while no send is in flight; streamed messages
// append after the loaded history.
func (s *State) loadHistory(msgs []model.ChatMessage) bool {
	if s.sending {
		return false
	}
	s.messages = append([]model.ChatMessage(nil), msgs...)
	return true
}
