// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Pull downloads model to the server (POST /api/pull), reporting each
// progress line to onProgress. It returns when the server reports success,
// the stream fails, or ctx is cancelled.
//
// The official api client handles the progress stream; it shares this
// client's deadline-enforcing transport.
func (c *Client) Pull(ctx context.Context, model string, onProgress func(PullProgress)) error {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ClientError{Type: ErrTypeConnection, Message: "invalid server address " + c.baseURL, Cause: err}
	}

	client := api.NewClient(u, c.httpClient)
	err = client.Pull(ctx, &api.PullRequest{Model: model}, func(p api.ProgressResponse) error {
		if onProgress != nil {
			onProgress(PullProgress{
				Status:    p.Status,
				Digest:    p.Digest,
				Total:     p.Total,
				Completed: p.Completed,
			})
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := fmt.Sprintf("HTTP %d: %s", statusErr.StatusCode, statusText(statusErr))
		if statusErr.ErrorMessage != "" {
			msg += " - " + statusErr.ErrorMessage
		}
		errType := ErrTypeHTTPStatus
		if statusErr.StatusCode == http.StatusNotFound {
			errType = ErrTypeModelNotFound
		}
		return &ClientError{Type: errType, Message: msg, StatusCode: statusErr.StatusCode}
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return err
	}
	if ctx.Err() != nil || isTransportFailure(err) {
		return c.transportError(ctx, err)
	}
	// The server reported an error inside the progress stream.
	return &ClientError{Type: ErrTypeInvalidResponse, Message: "pull " + model + " failed", Cause: err}
}

func statusText(e api.StatusError) string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return e.Status
}

func isTransportFailure(err error) bool {
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}
