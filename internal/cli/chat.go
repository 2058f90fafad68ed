// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive REPL chat for bondchat CLI.
//
// Handles "bondchat chat", a line-oriented alternative to the TUI for
// environments where Bubble Tea is unwanted (ssh, screen readers,
// scripts driving a pty).
//
// Interactive commands:
//   /new              Abandon the thread and start fresh
//   /thread [id]      Show or switch the active thread
//   /history          Reprint the conversation so far
//   /quit             Exit
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/bondchat-tui/internal/agent"
	"github.com/jeranaias/bondchat-tui/internal/config"
	"github.com/jeranaias/bondchat-tui/internal/diag"
	"github.com/jeranaias/bondchat-tui/internal/model"
	"github.com/jeranaias/bondchat-tui/internal/session"
	"github.com/jeranaias/bondchat-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	agentLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// replTimeout bounds one REPL turn.
const replTimeout = 5 * time.Minute

// =============================================================================
// REPL
// =============================================================================

// HandleChat runs the interactive REPL.
func HandleChat(args Args) {
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

	settled := make(chan session.Snapshot, 1)
	ctrl := session.NewController(session.Options{
		Transport: client,
		AgentID:   firstNonEmpty(args.Agent, cfg.Agent.DefaultAgent),
		Sink:      sink,
		OnUpdate: func(s session.Snapshot) {
			if s.Phase.Settled() {
				select {
				case settled <- s:
				default:
				}
			}
		},
	})
	if args.Thread != "" {
		ctrl.SetThreadIDOnly(args.Thread)
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := filepath.Join(filepath.Dir(config.Path()), "chat_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println(infoStyle.Render("bondchat " + Version + " - /quit to exit"))

	// printed tracks how much of the message list has been echoed, so
	// each settled turn only prints its own messages.
	printed := 0

	for {
		input, err := line.Prompt(promptStyle.Render("> "))
		if err != nil {
			// Ctrl-C, Ctrl-D, or a closed terminal all end the session.
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if handleReplCommand(ctrl, input, &printed) {
				return
			}
			continue
		}

		if !ctrl.SendMessage(session.SendOptions{Prompt: input}) {
			fmt.Println(errorStyle.Render("turn already in flight"))
			continue
		}

		select {
		case snap := <-settled:
			printTurn(snap, &printed)
		case <-time.After(replTimeout):
			ctrl.ClearChatSession()
			printed = 0
			fmt.Println(errorStyle.Render("timed out waiting for the agent"))
		}
	}
}

// handleReplCommand processes a /command. Returns true to exit.
func handleReplCommand(ctrl *session.Controller, input string, printed *int) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true

	case "/new", "/clear":
		ctrl.ClearChatSession()
		*printed = 0
		fmt.Println(infoStyle.Render("started a new conversation"))

	case "/thread":
		if len(fields) > 1 {
			ctrl.SetCurrentThread(fields[1])
			*printed = 0
			fmt.Println(infoStyle.Render("switched to thread " + fields[1]))
		} else if id := ctrl.Snapshot().ThreadID; id != "" {
			fmt.Println(infoStyle.Render("thread " + id))
		} else {
			fmt.Println(infoStyle.Render("no thread yet"))
		}

	case "/history":
		snap := ctrl.Snapshot()
		for _, msg := range snap.Messages {
			printMessage(msg)
		}

	case "/help", "/h":
		fmt.Println(infoStyle.Render("/new /thread [id] /history /quit"))

	default:
		fmt.Println(errorStyle.Render("unknown command " + fields[0] + " (/help)"))
	}
	return false
}

// printTurn prints the messages the settled turn added.
func printTurn(snap session.Snapshot, printed *int) {
	if *printed > len(snap.Messages) {
		*printed = 0
	}
	for _, msg := range snap.Messages[*printed:] {
		printMessage(msg)
	}
	*printed = len(snap.Messages)
}

func printMessage(msg model.ChatMessage) {
	switch {
	case msg.IsError:
		fmt.Println(errorStyle.Render("! " + msg.Text))
	case msg.Role == model.RoleUser:
		fmt.Println(promptStyle.Render(msg.Role.DisplayName()+":") + " " + msg.Text)
	default:
		fmt.Println(agentLabelStyle.Render(msg.Role.DisplayName()+":") + " " + msg.Text)
	}
}
