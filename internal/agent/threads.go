// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/bondchat-tui/internal/model"
	"github.com/jeranaias/bondchat-tui/internal/wire"
)

// =============================================================================
// THREAD HISTORY
// =============================================================================

// FetchThreadMessages loads the prior messages of a thread. The service
// answers with the same frame format it streams, just complete, so the
// body goes through the whole-response parser: garbage or an empty body
// comes back as a single error-flagged message rather than an error,
// keeping one rendering path for callers.
func (c *Client) FetchThreadMessages(ctx context.Context, threadID string) ([]model.ChatMessage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if threadID == "" {
		return nil, fmt.Errorf("%w: empty thread id", ErrThreadNotFound)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + "/threads/" + threadID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	var msgs []model.ChatMessage
	for _, f := range wire.ParseResponse(string(body)) {
		if f.IsSentinel() {
			continue
		}
		msg := wire.Decode(f)
		if msg.ThreadID == "" {
			msg.ThreadID = threadID
		}
		msgs = append(msgs, msg)
	}

	c.sink.Logf("agent: fetched %d messages for thread %s", len(msgs), threadID)
	return msgs, nil
}
