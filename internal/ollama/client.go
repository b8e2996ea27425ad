// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int // set for ErrTypeHTTPStatus and ErrTypeModelNotFound
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type so errors.Is(err, ErrTimeout) works for
// any timeout, not only the sentinel value itself.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Message == "" && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeHTTPStatus
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotRunning:
		return "not_running"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model_not_found"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeHTTPStatus:
		return "http_status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking with errors.Is.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one Ollama server.
//
// A Client is bound to the base URL it was created with. Callers that let
// the user change the URL create a new Client per call (see repository).
//
// Example:
//
//	client := ollama.NewClient("http://127.0.0.1:11434")
//	err := client.ChatStream(ctx, "llama3", msgs, func(delta string) {
//	    fmt.Print(delta)
//	})
type Client struct {
	baseURL    string
	timeouts   Timeouts
	httpClient *http.Client
	debug      bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeouts sets the per-operation socket timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) { c.timeouts = t }
}

// WithHTTPClient replaces the deadline-enforcing transport (tests only).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithDebug logs per-stream statistics.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// NewClient creates a client for baseURL. Trailing slashes are ignored.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeouts)
	}
	return c
}

// BaseURL returns the server address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "invalid server address " + c.baseURL, Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	return resp, nil
}

// transportError classifies a failure that happened before or while reading
// a response.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request to " + c.baseURL + " timed out", Cause: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ClientError{Type: ErrTypeNotRunning, Message: "cannot connect to Ollama at " + c.baseURL, Cause: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return &ClientError{Type: ErrTypeConnection, Message: "cannot reach " + c.baseURL, Cause: err}
	}

	return &ClientError{Type: ErrTypeConnection, Message: "request to " + c.baseURL + " failed", Cause: err}
}

// statusError builds the error for a non-2xx response, e.g.
// "HTTP 404: Not Found - model 'x' not found".
func statusError(resp *http.Response) error {
	msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	var body apiError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil && body.Error != "" {
		msg += " - " + body.Error
	}

	errType := ErrTypeHTTPStatus
	if resp.StatusCode == http.StatusNotFound {
		errType = ErrTypeModelNotFound
	}
	return &ClientError{Type: errType, Message: msg, StatusCode: resp.StatusCode}
}

func success(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all locally available models (GET /api/tags).
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !success(resp) {
		return nil, statusError(resp)
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if ctx.Err() != nil {
			return nil, c.transportError(ctx, ctx.Err())
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode model list", Cause: err}
	}
	if result.Models == nil {
		result.Models = []ModelInfo{}
	}
	return result.Models, nil
}

// Ping checks that the server answers on /api/tags.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !success(resp) {
		return statusError(resp)
	}
	// A body cut off mid-read means the server is not answering properly.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return c.transportError(ctx, err)
	}
	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream sends a streaming chat request (POST /api/chat) and calls
// onDelta once for every line that carries text. onDelta runs on the calling
// goroutine, in order.
//
// A non-2xx response returns one error and never calls onDelta. A
// cancelled ctx returns an error of type ErrTypeCanceled.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, onDelta func(string)) error {
	return c.chatStream(ctx, model, messages, func(chunk StreamChunk) {
		if chunk.Content != "" {
			onDelta(chunk.Content)
		}
	})
}

func (c *Client) chatStream(ctx context.Context, model string, messages []Message, callback func(StreamChunk)) error {
	if messages == nil {
		messages = []Message{}
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/chat", ChatRequest{
		Model:    model,
		Stream:   true,
		Messages: messages,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !success(resp) {
		return statusError(resp)
	}

	reader := NewStreamReader(resp.Body)
	err = reader.Process(ctx, callback)

	if c.debug || reader.MalformedCount() > 0 {
		log.Printf("CHAT_STREAM_END | model=%s deltas=%d malformed=%d done=%t", model, reader.DeltaCount(), reader.MalformedCount(), reader.Done())
	}

	if err != nil {
		return c.transportError(ctx, err)
	}
	return nil
}

// ChatStreamChan sends a streaming chat request and returns a channel of chunks.
// The channel is closed when streaming is complete or an error occurs.
// Errors are delivered as a final chunk with the Error field set.
func (c *Client) ChatStreamChan(ctx context.Context, model string, messages []Message) <-chan StreamChunk {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := c.chatStream(ctx, model, messages, func(chunk StreamChunk) {
			if chunk.Content == "" && !chunk.Done {
				return
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
			}
		})

		if err != nil {
			select {
			case ch <- StreamChunk{Error: err, Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotRunning checks if an error indicates Ollama refused the connection.
func IsNotRunning(err error) bool {
	return errorType(err) == ErrTypeNotRunning
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errorType(err) == ErrTypeTimeout
}

// IsModelNotFound checks if the server answered 404.
func IsModelNotFound(err error) bool {
	return errorType(err) == ErrTypeModelNotFound
}

// IsCanceled checks if the request was abandoned because its context ended.
func IsCanceled(err error) bool {
	return errorType(err) == ErrTypeCanceled || errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}

func errorType(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}
