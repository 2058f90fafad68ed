// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler for bondchat CLI.
//
// Handles "bondchat ask", which submits one turn, waits for the
// response stream to settle, and prints the agent's messages.
//
// Examples:
//   bondchat ask "What is the capital of France?"
//   bondchat ask -t thread_123 "And its population?"
//   bondchat ask -f report.csv "Summarize this file"
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/bondchat-tui/internal/agent"
	"github.com/jeranaias/bondchat-tui/internal/config"
	"github.com/jeranaias/bondchat-tui/internal/diag"
	"github.com/jeranaias/bondchat-tui/internal/model"
	"github.com/jeranaias/bondchat-tui/internal/session"
)

// MaxAttachmentSize caps the file included with -f (256KB).
const MaxAttachmentSize = 256 * 1024

// askTimeout bounds the whole one-shot exchange.
const askTimeout = 5 * time.Minute

// HandleAsk runs a single turn and prints the settled response.
func HandleAsk(args Args) {
	if args.Query == "" {
		fmt.Fprintln(os.Stderr, "Error: ask requires a question")
		os.Exit(1)
	}

	cfg := config.Global()
	sink := diag.Nop()
	if args.Verbose {
		if fs, err := diag.NewFileSink(cfg.LogPath); err == nil {
			sink = fs
			defer diag.Close(sink)
		}
	}

	client := agent.NewClient(agent.Config{
		BaseURL: cfg.Agent.BaseURL,
		APIKey:  cfg.Agent.APIKey,
		AgentID: cfg.Agent.DefaultAgent,
	}, sink)
	if !client.IsConfigured() {
		fmt.Fprintln(os.Stderr, "Error: agent service not configured (set BONDCHAT_AGENT_URL and BONDCHAT_API_KEY)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	var attachments []model.FileRef
	if args.File != "" {
		ref, err := uploadFile(ctx, client, args.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		attachments = append(attachments, ref)
	}

	// The controller drives the exchange; the done channel fires once
	// the session settles.
	done := make(chan session.Snapshot, 1)
	ctrl := session.NewController(session.Options{
		Transport: client,
		AgentID:   firstNonEmpty(args.Agent, cfg.Agent.DefaultAgent),
		Sink:      sink,
		OnUpdate: func(s session.Snapshot) {
			if s.Phase.Settled() {
				select {
				case done <- s:
				default:
				}
			}
		},
	})

	if !ctrl.SendMessage(session.SendOptions{
		Prompt:      args.Query,
		Attachments: attachments,
		ThreadID:    args.Thread,
	}) {
		fmt.Fprintln(os.Stderr, "Error: nothing to send")
		os.Exit(1)
	}

	var snap session.Snapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		ctrl.ClearChatSession()
		fmt.Fprintln(os.Stderr, "Error: timed out waiting for the agent")
		os.Exit(1)
	}

	printResponse(snap, args.Quiet)
	if snap.Phase == session.PhaseFailed {
		os.Exit(1)
	}
}

// uploadFile reads and uploads an attachment.
func uploadFile(ctx context.Context, client *agent.Client, path string) (model.FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.FileRef{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.Size() > MaxAttachmentSize {
		return model.FileRef{}, fmt.Errorf("%s is too large (%d bytes, limit %d)", path, info.Size(), MaxAttachmentSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FileRef{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return client.UploadAttachment(ctx, filepath.Base(path), data)
}

// printResponse writes the agent's messages to stdout, through glamour
// when stdout is a terminal.
func printResponse(snap session.Snapshot, quiet bool) {
	renderer := newMarkdownRenderer()

	for _, msg := range snap.Messages {
		if msg.Role == model.RoleUser {
			continue
		}
		if msg.IsError {
			fmt.Fprintln(os.Stderr, "Error:", msg.Text)
			continue
		}
		fmt.Println(renderText(renderer, msg.Text))
	}

	if snap.ErrorText != "" {
		fmt.Fprintln(os.Stderr, "Error:", snap.ErrorText)
	}
	if !quiet && snap.ThreadID != "" && IsStdoutTTY() {
		fmt.Printf("\n(thread %s)\n", snap.ThreadID)
	}
}

// newMarkdownRenderer returns a glamour renderer for TTY output, or nil
// for pipes.
func newMarkdownRenderer() *glamour.TermRenderer {
	if !IsStdoutTTY() {
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		return nil
	}
	return r
}

func renderText(renderer *glamour.TermRenderer, text string) string {
	if renderer == nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
