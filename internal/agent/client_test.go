// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeranaias/bondchat-tui/internal/model"
)

func testClient(url string) *Client {
	return NewClient(Config{BaseURL: url, APIKey: "test-key", AgentID: "agent-1"}, nil)
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestIsConfigured(t *testing.T) {
	if NewClient(Config{}, nil).IsConfigured() {
		t.Error("Empty config must not be configured")
	}
	if NewClient(Config{BaseURL: "http://x"}, nil).IsConfigured() {
		t.Error("Missing API key must not be configured")
	}
	if !testClient("http://x").IsConfigured() {
		t.Error("Full config must be configured")
	}
}

func TestNotConfiguredErrors(t *testing.T) {
	c := NewClient(Config{}, nil)

	if _, err := c.OpenTurnStream(context.Background(), model.TurnRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("OpenTurnStream: expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.FetchThreadMessages(context.Background(), "t1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("FetchThreadMessages: expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.UploadAttachment(context.Background(), "a.txt", []byte("x")); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("UploadAttachment: expected ErrNotConfigured, got %v", err)
	}
}

// =============================================================================
// TURN STREAM TESTS
// =============================================================================

func TestOpenTurnStream(t *testing.T) {
	wire := `<_bondmessage id="1" role="assistant">hi</_bondmessage>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/agents/agent-1/turns" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Missing bearer token, got %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Bad payload: %v", err)
		}
		if payload["prompt"] != "question" {
			t.Errorf("Expected prompt in payload, got %v", payload["prompt"])
		}
		if _, ok := payload["thread_id"]; ok {
			t.Error("Empty thread_id must be omitted")
		}

		io.WriteString(w, wire)
	}))
	defer server.Close()

	body, err := testClient(server.URL).OpenTurnStream(context.Background(), model.TurnRequest{
		TurnID:  "turn-1",
		AgentID: "agent-1",
		Prompt:  "question",
		Role:    model.RoleUser,
	})
	if err != nil {
		t.Fatalf("OpenTurnStream failed: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != wire {
		t.Errorf("Expected raw wire text, got %q", got)
	}
}

func TestOpenTurnStreamAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).OpenTurnStream(context.Background(), model.TurnRequest{AgentID: "agent-1"})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}
}

func TestOpenTurnStreamRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).OpenTurnStream(context.Background(), model.TurnRequest{AgentID: "agent-1"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Expected RateLimitError, got %T", err)
	}
	if rl.RetryAfter != 30*time.Second {
		t.Errorf("Expected 30s retry hint, got %v", rl.RetryAfter)
	}
}

// =============================================================================
// THREAD HISTORY TESTS
// =============================================================================

func TestFetchThreadMessages(t *testing.T) {
	response := `<_bondmessage id="1" role="user">question</_bondmessage>` +
		`<_bondmessage id="2" role="assistant" thread_id="t1">answer</_bondmessage>` +
		`<_bondmessage id="-1" role="system" is_done="true">Done.</_bondmessage>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/t1/messages" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, response)
	}))
	defer server.Close()

	msgs, err := testClient(server.URL).FetchThreadMessages(context.Background(), "t1")
	if err != nil {
		t.Fatalf("FetchThreadMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages (sentinel filtered), got %d", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Text != "question" {
		t.Errorf("Message 1 wrong: %+v", msgs[0])
	}
	if msgs[0].ThreadID != "t1" {
		t.Errorf("Messages must default to the fetched thread, got %q", msgs[0].ThreadID)
	}
}

func TestFetchThreadMessagesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchThreadMessages(context.Background(), "missing")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}

func TestFetchThreadMessagesEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	msgs, err := testClient(server.URL).FetchThreadMessages(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Empty body is not a transport error: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].IsError {
		t.Errorf("Empty body must decode to one error message, got %+v", msgs)
	}
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

func TestUploadAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing multipart file: %v", err)
		}
		defer file.Close()
		if header.Filename != "doc.txt" {
			t.Errorf("Expected filename doc.txt, got %s", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "contents" {
			t.Errorf("Payload mangled: %q", data)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "file_9", "name": "doc.txt"})
	}))
	defer server.Close()

	ref, err := testClient(server.URL).UploadAttachment(context.Background(), "doc.txt", []byte("contents"))
	if err != nil {
		t.Fatalf("UploadAttachment failed: %v", err)
	}
	if ref.ID != "file_9" || ref.Name != "doc.txt" {
		t.Errorf("Unexpected ref: %+v", ref)
	}
}

func TestUploadAttachmentMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	if _, err := testClient(server.URL).UploadAttachment(context.Background(), "a", []byte("x")); err == nil {
		t.Error("Missing file id must be an error")
	}
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestHandleRateLimitHTTPDate(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))

	err := handleRateLimit(resp)
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Expected RateLimitError, got %T", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > time.Minute+time.Second {
		t.Errorf("Unreasonable retry hint: %v", rl.RetryAfter)
	}
}

func TestAPIErrorIs(t *testing.T) {
	if !errors.Is(&APIError{Status: http.StatusForbidden}, ErrAuthFailed) {
		t.Error("403 must match ErrAuthFailed")
	}
	if !errors.Is(&APIError{Status: http.StatusNotFound}, ErrThreadNotFound) {
		t.Error("404 must match ErrThreadNotFound")
	}
	if errors.Is(&APIError{Status: http.StatusInternalServerError}, ErrAuthFailed) {
		t.Error("500 must not match ErrAuthFailed")
	}
}
