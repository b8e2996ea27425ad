// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"encoding/json"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message as sent to /api/chat.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`    // Model name (e.g., "llama3")
	Stream   bool      `json:"stream"`   // Always true here
	Messages []Message `json:"messages"` // Conversation history
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ModelInfo describes one model returned by /api/tags.
//
// Optional fields are nil when the server omits them or sends an empty string.
type ModelInfo struct {
	Name       string
	Size       int64
	ModifiedAt *string
	Details    *ModelDetails
}

// ModelDetails is the optional details block of a ModelInfo.
type ModelDetails struct {
	ParameterSize *string
	Family        *string
	Format        *string
}

// wireModel is the JSON shape of a /api/tags entry.
type wireModel struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
	Details    *struct {
		ParameterSize string `json:"parameter_size"`
		Family        string `json:"family"`
		Format        string `json:"format"`
	} `json:"details"`
}

// UnmarshalJSON falls back to "model" when "name" is missing and maps
// empty optional strings to nil.
func (m *ModelInfo) UnmarshalJSON(data []byte) error {
	var w wireModel
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	name := w.Name
	if name == "" {
		name = w.Model
	}

	*m = ModelInfo{
		Name:       name,
		Size:       w.Size,
		ModifiedAt: optString(w.ModifiedAt),
	}
	if w.Details != nil {
		m.Details = &ModelDetails{
			ParameterSize: optString(w.Details.ParameterSize),
			Family:        optString(w.Details.Family),
			Format:        optString(w.Details.Format),
		}
	}
	return nil
}

// MarshalJSON writes the /api/tags shape back out (used by "models list --json").
func (m ModelInfo) MarshalJSON() ([]byte, error) {
	type details struct {
		ParameterSize *string `json:"parameter_size,omitempty"`
		Family        *string `json:"family,omitempty"`
		Format        *string `json:"format,omitempty"`
	}
	out := struct {
		Name       string   `json:"name"`
		Size       int64    `json:"size"`
		ModifiedAt *string  `json:"modified_at,omitempty"`
		Details    *details `json:"details,omitempty"`
	}{
		Name:       m.Name,
		Size:       m.Size,
		ModifiedAt: m.ModifiedAt,
	}
	if m.Details != nil {
		out.Details = &details{
			ParameterSize: m.Details.ParameterSize,
			Family:        m.Details.Family,
			Format:        m.Details.Format,
		}
	}
	return json.Marshal(out)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ParameterSize returns the parameter size label or "".
func (m ModelInfo) ParameterSize() string {
	if m.Details == nil || m.Details.ParameterSize == nil {
		return ""
	}
	return *m.Details.ParameterSize
}

// Family returns the model family or "".
func (m ModelInfo) Family() string {
	if m.Details == nil || m.Details.Family == nil {
		return ""
	}
	return *m.Details.Family
}

// Modified parses ModifiedAt. ok is false when absent or unparseable.
func (m ModelInfo) Modified() (t time.Time, ok bool) {
	if m.ModifiedAt == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *m.ModifiedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListModelsResponse is the response from /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// streamLine is one NDJSON object of a /api/chat stream.
type streamLine struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
}

// StreamChunk represents a single piece of a streamed chat response.
type StreamChunk struct {
	// Content is the incremental text carried by this line
	Content string
	// Done is set on the final chunk
	Done bool
	// DoneReason is the server's reason for stopping ("stop", "length", ...)
	DoneReason string
	// Model echoes the model that produced the chunk
	Model string
	// Error is set when the stream failed; it is always the last chunk
	Error error
}

// apiError is the JSON error body Ollama sends with non-2xx responses.
type apiError struct {
	Error string `json:"error"`
}

// PullProgress is one progress update during a model download.
type PullProgress struct {
	Status    string
	Digest    string
	Total     int64
	Completed int64
}

// Percent returns download completion in the range 0-100, or -1 when the
// update carries no byte counts.
func (p PullProgress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	pct := int(p.Completed * 100 / p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
