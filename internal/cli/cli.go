// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for bondchat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jeranaias/bondchat-tui/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Agent   string
	Thread  string

	// Command-specific
	Query string
	File  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Exposed for testing.
func ParseArgs(argv []string) (Command, Args) {
	var args Args
	cmd := CmdTUI

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-a", "--agent":
			if i+1 < len(argv) {
				i++
				args.Agent = argv[i]
			}
		case "-t", "--thread":
			if i+1 < len(argv) {
				i++
				args.Thread = argv[i]
			}
		case "-f", "--file":
			if i+1 < len(argv) {
				i++
				args.File = argv[i]
			}
		case "-h", "--help", "help":
			return CmdHelp, args
		case "--version":
			return CmdVersion, args
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return cmd, args
	}

	switch positional[0] {
	case "tui":
		cmd = CmdTUI
		args.Raw = positional[1:]
	case "ask":
		cmd = CmdAsk
		args.Query = strings.Join(positional[1:], " ")
	case "chat":
		cmd = CmdChat
		args.Raw = positional[1:]
	case "config":
		cmd = CmdConfig
		args.Raw = positional[1:]
	case "version":
		cmd = CmdVersion
	default:
		// Bare words are an implicit ask.
		cmd = CmdAsk
		args.Query = strings.Join(positional, " ")
	}

	return cmd, args
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("bondchat %s (%s, %s) %s/%s\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// HandleHelp prints usage.
func HandleHelp() {
	fmt.Print(`bondchat - terminal client for streamed agent conversations

Usage:
  bondchat                  Start the TUI (default)
  bondchat ask <question>   Ask a single question and exit
  bondchat chat             Interactive REPL chat
  bondchat config           Show the active configuration
  bondchat version          Print version information

Flags:
  -a, --agent ID     Agent to talk to (overrides config)
  -t, --thread ID    Continue an existing thread
  -f, --file PATH    Attach a file to the question (ask only)
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output

Environment:
  BONDCHAT_AGENT_URL   Agent service base URL
  BONDCHAT_API_KEY     API key
  BONDCHAT_AGENT_ID    Default agent id
`)
}

// HandleConfig prints the active configuration with the API key
// redacted.
func HandleConfig() {
	cfg := config.Global()

	key := "(not set)"
	if cfg.Agent.APIKey != "" {
		key = "****" + lastN(cfg.Agent.APIKey, 4)
	}

	fmt.Printf("config file:    %s\n", config.Path())
	fmt.Printf("agent url:      %s\n", cfg.Agent.BaseURL)
	fmt.Printf("api key:        %s\n", key)
	fmt.Printf("default agent:  %s\n", cfg.Agent.DefaultAgent)
	fmt.Printf("history path:   %s\n", cfg.HistoryPath)
	fmt.Printf("log path:       %s\n", cfg.LogPath)
	fmt.Printf("markdown:       %v\n", cfg.UI.Markdown)
}

// lastN returns the last n characters of s, or all of s when shorter.
func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
