// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/jeranaias/bondchat-tui/internal/model"
)

// =============================================================================
// ATTACHMENT UPLOAD
// =============================================================================

// uploadResponse is the service's answer to a file upload.
type uploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UploadAttachment sends a file to the agent service and returns the
// opaque reference to cite in a turn. The payload bytes are never
// inspected; decoding inline images is the wire decoder's job on the
// way back, not ours on the way out.
func (c *Client) UploadAttachment(ctx context.Context, filename string, data []byte) (model.FileRef, error) {
	if !c.IsConfigured() {
		return model.FileRef{}, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return model.FileRef{}, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return model.FileRef{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return model.FileRef{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return model.FileRef{}, fmt.Errorf("failed to build upload: %w", err)
	}

	url := c.baseURL + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return model.FileRef{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return model.FileRef{}, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return model.FileRef{}, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.FileRef{}, c.handleErrorResponse(resp.StatusCode, body)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.FileRef{}, fmt.Errorf("malformed upload response: %w", err)
	}
	if parsed.ID == "" {
		return model.FileRef{}, fmt.Errorf("upload response missing file id")
	}

	name := parsed.Name
	if name == "" {
		name = filename
	}
	c.sink.Logf("agent: uploaded attachment %s as %s", filename, parsed.ID)
	return model.FileRef{ID: parsed.ID, Name: name}, nil
}
