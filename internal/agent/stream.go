// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/bondchat-tui/internal/model"
)

// =============================================================================
// TURN STREAMING
// =============================================================================

// turnPayload is the outbound JSON body for one turn.
type turnPayload struct {
	TurnID      string   `json:"turn_id"`
	AgentID     string   `json:"agent_id"`
	ThreadID    string   `json:"thread_id,omitempty"`
	Prompt      string   `json:"prompt"`
	Role        string   `json:"role"`
	Attachments []string `json:"attachment_refs,omitempty"`
}

// OpenTurnStream submits a turn and returns the open response body: an
// append-only text stream of wire frames, terminated either by a
// sentinel control frame or by closure. The caller owns the body and
// must close it; the context cancels the stream.
//
// Implements session.Transport.
func (c *Client) OpenTurnStream(ctx context.Context, req model.TurnRequest) (io.ReadCloser, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := turnPayload{
		TurnID:   req.TurnID,
		AgentID:  req.AgentID,
		ThreadID: req.ThreadID,
		Prompt:   req.Prompt,
		Role:     req.Role.String(),
	}
	for _, ref := range req.Attachments {
		payload.Attachments = append(payload.Attachments, ref.ID)
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn: %w", err)
	}

	url := c.baseURL + "/agents/" + req.AgentID + "/turns"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/plain")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Connection", "keep-alive")

	c.sink.Logf("agent: opening turn stream turn=%s thread=%q", req.TurnID, req.ThreadID)

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, handleRateLimit(resp)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return resp.Body, nil
}
