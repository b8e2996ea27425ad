// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of /api/chat responses.
//
// Blank lines are skipped. Lines that are not valid JSON are dropped and
// counted; they never end the stream. Reading stops at the first line with
// "done": true even if more bytes follow.
type StreamReader struct {
	reader    *bufio.Reader
	model     string
	deltas    int
	malformed int
	done      bool
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Next returns the next parsed chunk. It returns io.EOF after the done line
// or when the body ends.
func (s *StreamReader) Next() (StreamChunk, error) {
	for {
		if s.done {
			return StreamChunk{}, io.EOF
		}

		line, err := s.reader.ReadBytes('\n')
		if len(line) > 0 {
			if chunk, ok := s.parse(line); ok {
				if chunk.Done {
					s.done = true
				}
				return chunk, nil
			}
		}
		if err != nil {
			// A final line without a newline was handled above.
			return StreamChunk{}, err
		}
	}
}

// parse decodes one line. ok is false for blank or malformed lines.
func (s *StreamReader) parse(line []byte) (StreamChunk, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return StreamChunk{}, false
	}

	var resp streamLine
	if err := json.Unmarshal(line, &resp); err != nil {
		s.malformed++
		return StreamChunk{}, false
	}

	if resp.Model != "" {
		s.model = resp.Model
	}
	if resp.Message.Content != "" {
		s.deltas++
	}

	return StreamChunk{
		Content:    resp.Message.Content,
		Done:       resp.Done,
		DoneReason: resp.DoneReason,
		Model:      s.model,
	}, true
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback func(StreamChunk)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		callback(chunk)
	}
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string { return s.model }

// DeltaCount returns the number of lines that carried text.
func (s *StreamReader) DeltaCount() int { return s.deltas }

// MalformedCount returns the number of lines dropped as invalid JSON.
func (s *StreamReader) MalformedCount() int { return s.malformed }

// Done reports whether the done line was seen.
func (s *StreamReader) Done() bool { return s.done }
