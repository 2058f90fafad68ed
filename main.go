// bondchat TUI - A terminal client for streamed agent conversations.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/bondchat-tui/internal/agent"
	"github.com/jeranaias/bondchat-tui/internal/cli"
	"github.com/jeranaias/bondchat-tui/internal/config"
	"github.com/jeranaias/bondchat-tui/internal/diag"
	"github.com/jeranaias/bondchat-tui/internal/history"
	"github.com/jeranaias/bondchat-tui/internal/session"
	"github.com/jeranaias/bondchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async session updates
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdConfig:
		cli.HandleConfig()
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandleHelp()
		os.Exit(1)
	}
}

// runTUI starts the Bubble Tea chat interface.
func runTUI(args cli.Args) {
	cfg := config.Global()

	sink := diag.Nop()
	if fs, err := diag.NewFileSink(cfg.LogPath); err == nil {
		sink = fs
		defer diag.Close(sink)
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

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		sink.Logf("main: history cache unavailable: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	agentID := cfg.Agent.DefaultAgent
	if args.Agent != "" {
		agentID = args.Agent
	}

	ctrl := session.NewController(session.Options{
		Transport: client,
		AgentID:   agentID,
		Sink:      sink,
		OnUpdate: func(s session.Snapshot) {
			programMu.Lock()
			p := programRef
			programMu.Unlock()
			if p != nil {
				p.Send(chat.SessionUpdateMsg{Snapshot: s})
			}
			persistSettled(store, s, sink)
		},
	})

	// Reload config on file edits; the watcher only affects the next
	// lookup of config.Global, connections keep their settings.
	if watcher, err := config.NewWatcher(config.Path(), sink, nil); err == nil {
		defer watcher.Close()
	}

	if args.Thread != "" {
		ctrl.SetCurrentThread(args.Thread)
		go loadThread(ctrl, client, store, args.Thread, sink)
	} else if cfg.Agent.Introduction != "" {
		ctrl.SendIntroduction(agentID, cfg.Agent.Introduction)
	}

	m := chat.New(ctrl, cfg.UI)
	p := tea.NewProgram(m, tea.WithAltScreen())

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadThread restores a thread: cached history first for instant
// display, then the authoritative remote copy.
func loadThread(ctrl *session.Controller, client *agent.Client, store *history.Store, threadID string, sink diag.Sink) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if store != nil {
		if cached, err := store.Load(ctx, threadID); err == nil && len(cached) > 0 {
			ctrl.LoadHistory(cached)
		}
	}

	msgs, err := client.FetchThreadMessages(ctx, threadID)
	if err != nil {
		sink.Logf("main: thread fetch failed: %v", err)
		return
	}
	ctrl.LoadHistory(msgs)
	if store != nil {
		if err := store.Replace(ctx, threadID, msgs); err != nil {
			sink.Logf("main: history cache write failed: %v", err)
		}
	}
}

// persistSettled caches the conversation once a turn settles cleanly.
func persistSettled(store *history.Store, s session.Snapshot, sink diag.Sink) {
	if store == nil || s.Phase != session.PhaseDone || s.ThreadID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Replace(ctx, s.ThreadID, s.Messages); err != nil {
		sink.Logf("main: history cache write failed: %v", err)
	}
}
