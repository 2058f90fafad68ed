// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/bondchat-tui/internal/diag"
	"github.com/jeranaias/bondchat-tui/internal/model"
)

// readChunkSize is the transport read granularity. Frame boundaries do
// not align with reads; the parser handles arbitrary splits.
const readChunkSize = 4096

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Transport opens the streamed response for one turn. The returned body
// is an append-only text stream terminated either by a sentinel control
// frame or by closure.
type Transport interface {
	OpenTurnStream(ctx context.Context, req model.TurnRequest) (io.ReadCloser, error)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of session state handed to observers.
type Snapshot struct {
	Phase      Phase
	ThreadID   string
	IsSending  bool
	Messages   []model.ChatMessage
	Partial    string
	HasPartial bool
	ErrorText  string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	// Transport is required.
	Transport Transport

	// AgentID is the default agent for turns that don't name one.
	AgentID string

	// Sink receives diagnostics. Optional; the controller never depends
	// on it for correctness.
	Sink diag.Sink

	// OnUpdate is invoked with a fresh snapshot after every state
	// change. Called from the stream goroutine; implementations must
	// hand off to their own loop (e.g. tea.Program.Send).
	OnUpdate func(Snapshot)
}

// Controller is the public surface of a chat session: submit a turn,
// adopt a thread, reset, and react to out-of-band pending messages.
// All failures surface as session state, never as errors or panics
// crossing these methods.
type Controller struct {
	mu        sync.Mutex
	state     *State
	transport Transport
	agentID   string
	sink      diag.Sink
	onUpdate  func(Snapshot)
	cancelMgr *cancelManager

	// gen guards late callbacks: a stream goroutine only mutates state
	// while its generation is current. Reset bumps the generation, so
	// anything that fires afterwards is a no-op.
	gen uint64
}

// NewController creates a session controller.
func NewController(opts Options) *Controller {
	sink := opts.Sink
	if sink == nil {
		sink = diag.Nop()
	}
	return &Controller{
		state:     NewState(),
		transport: opts.Transport,
		agentID:   opts.AgentID,
		sink:      sink,
		onUpdate:  opts.OnUpdate,
		cancelMgr: newCancelManager(),
	}
}

// SendOptions describes one outbound turn.
type SendOptions struct {
	// AgentID overrides the controller default when set.
	AgentID string

	// Prompt is the turn text. A prompt that is empty after trimming is
	// rejected before any network call unless attachments are present.
	Prompt string

	// Attachments are references from the upload collaborator.
	Attachments []model.FileRef

	// OverrideRole injects a system-authored turn. Empty means user.
	OverrideRole model.Role

	// ThreadID explicitly selects a thread; adopted at submit time and
	// never overwritten by the stream.
	ThreadID string
}

// SendMessage submits a turn. Returns false for the two no-op cases:
// an empty prompt with no attachments, and a send already in flight.
func (c *Controller) SendMessage(opts SendOptions) bool {
	prompt := strings.TrimSpace(opts.Prompt)
	if prompt == "" && len(opts.Attachments) == 0 {
		c.sink.Logf("session: dropping empty turn")
		return false
	}

	role := opts.OverrideRole
	if role == "" {
		role = model.RoleUser
	}
	agentID := opts.AgentID
	if agentID == "" {
		agentID = c.agentID
	}

	c.mu.Lock()
	if !c.state.beginSend(opts.ThreadID) {
		c.mu.Unlock()
		c.sink.Logf("session: send rejected, turn already in flight")
		return false
	}
	c.gen++
	gen := c.gen
	req := model.TurnRequest{
		TurnID:      uuid.NewString(),
		AgentID:     agentID,
		ThreadID:    c.state.ThreadID(),
		Prompt:      prompt,
		Role:        role,
		Attachments: opts.Attachments,
	}
	c.mu.Unlock()
	c.notify()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMgr.set(cancel)

	go c.consumeStream(ctx, gen, req)
	return true
}

// SendIntroduction auto-starts a conversation with a fixed user role
// and no thread id; the server creates the thread.
func (c *Controller) SendIntroduction(agentID, introduction string) bool {
	return c.SendMessage(SendOptions{AgentID: agentID, Prompt: introduction})
}

// HandlePendingMessage reacts to an out-of-band pending message by
// abandoning the current session and starting a fresh thread with a
// system-authored turn.
func (c *Controller) HandlePendingMessage(agentID, prompt string) bool {
	c.ClearChatSession()
	return c.SendMessage(SendOptions{
		AgentID:      agentID,
		Prompt:       prompt,
		OverrideRole: model.RoleSystem,
	})
}

// SetCurrentThread resets the session and adopts threadID. The caller
// is responsible for fetching prior messages separately and handing
// them to LoadHistory.
func (c *Controller) SetCurrentThread(threadID string) {
	c.ClearChatSession()
	c.SetThreadIDOnly(threadID)
}

// SetThreadIDOnly adopts a thread id without loading history. A no-op
// while a send is in flight.
func (c *Controller) SetThreadIDOnly(threadID string) {
	c.mu.Lock()
	if !c.state.IsSending() {
		c.state.threadID = threadID
	}
	c.mu.Unlock()
	c.notify()
}

// LoadHistory installs previously fetched thread history as the message
// list. Returns false while a send is in flight.
func (c *Controller) LoadHistory(msgs []model.ChatMessage) bool {
	c.mu.Lock()
	ok := c.state.loadHistory(msgs)
	c.mu.Unlock()
	if ok {
		c.notify()
	}
	return ok
}

// ClearChatSession cancels any in-flight stream and returns the session
// to a blank idle state. Legal from any phase.
func (c *Controller) ClearChatSession() {
	c.mu.Lock()
	c.gen++
	c.state.reset()
	c.mu.Unlock()
	c.cancelMgr.clear()
	c.notify()
}

// Snapshot returns the current session state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// =============================================================================
// STREAM CONSUMPTION
// =============================================================================

// consumeStream opens the transport stream and feeds chunks into the
// state machine until a sentinel settles the session or the stream
// closes. Every mutation re-checks the generation and context so that
// callbacks firing after a reset are no-ops.
func (c *Controller) consumeStream(ctx context.Context, gen uint64, req model.TurnRequest) {
	body, err := c.transport.OpenTurnStream(ctx, req)
	if err != nil {
		c.sink.Logf("session: open stream failed: %v", err)
		c.finish(gen, err)
		return
	}
	defer body.Close()

	buf := make([]byte, readChunkSize)
	for {
		if ctx.Err() != nil {
			return
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			settled, alive := c.apply(ctx, gen, string(buf[:n]))
			if !alive {
				return
			}
			if settled {
				return
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				readErr = nil
			}
			c.finish(gen, readErr)
			return
		}
	}
}

// apply feeds one chunk into the state machine. Returns whether the
// session settled and whether this goroutine is still current.
func (c *Controller) apply(ctx context.Context, gen uint64, chunk string) (settled, alive bool) {
	c.mu.Lock()
	if gen != c.gen || ctx.Err() != nil {
		c.mu.Unlock()
		return false, false
	}
	settled = c.state.applyChunk(chunk)
	c.mu.Unlock()
	c.notify()
	return settled, true
}

// finish records transport termination; a no-op for stale generations
// and for sessions the sentinel already settled.
func (c *Controller) finish(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.finishStream(cause)
	c.mu.Unlock()
	c.notify()
}

// notify pushes a fresh snapshot to the observer, if any.
func (c *Controller) notify() {
	if c.onUpdate == nil {
		return
	}
	c.onUpdate(c.Snapshot())
}

func (c *Controller) snapshotLocked() Snapshot {
	partial, hasPartial := c.state.Partial()
	return Snapshot{
		Phase:      c.state.Phase(),
		ThreadID:   c.state.ThreadID(),
		IsSending:  c.state.IsSending(),
		Messages:   c.state.Messages(),
		Partial:    partial,
		HasPartial: hasPartial,
		ErrorText:  c.state.ErrorText(),
	}
}
