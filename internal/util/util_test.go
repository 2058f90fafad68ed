// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("short", 20); got != "short" {
		t.Errorf("Short string must pass through, got %q", got)
	}
	got := TruncateWidth("a very long line of text", 10)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Truncated string must end in ellipsis, got %q", got)
	}
	if TruncateWidth("anything", 0) != "" {
		t.Error("Zero width yields empty string")
	}
}

func TestTruncateWidthCJK(t *testing.T) {
	// Double-width runes must count as two cells.
	got := TruncateWidth("日本語のテキスト", 8)
	if got == "日本語のテキスト" {
		t.Error("Wide text exceeding the budget must be truncated")
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("one\ntwo\nthree"); got != "one" {
		t.Errorf("Expected first line, got %q", got)
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("Expected passthrough, got %q", got)
	}
}

func TestFormatTimestampToday(t *testing.T) {
	got := FormatTimestamp(time.Now())
	if strings.Contains(got, "Jan") || len(got) != 5 {
		t.Errorf("Today's timestamp should be HH:MM, got %q", got)
	}
}

func TestFormatTimestampOld(t *testing.T) {
	old := time.Date(2023, time.March, 5, 14, 30, 0, 0, time.Local)
	got := FormatTimestamp(old)
	if !strings.Contains(got, "Mar") {
		t.Errorf("Old timestamps should include the date, got %q", got)
	}
}

func TestCountLines(t *testing.T) {
	if CountLines("") != 0 {
		t.Error("Empty string has 0 lines")
	}
	if CountLines("a") != 1 {
		t.Error("Single line counts as 1")
	}
	if CountLines("a\nb\nc") != 3 {
		t.Error("Three lines count as 3")
	}
}
