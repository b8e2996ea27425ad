// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "github.com/ollamamobile/ollama-mobile/internal/ollama"

// Append and FinalizeID never modify their input slice; they return a new
// one so a previously published history stays valid.

// Append returns history with msgs added at the end.
func Append(history []Message, msgs ...Message) []Message {
	out := make([]Message, 0, len(history)+len(msgs))
	out = append(out, history...)
	return append(out, msgs...)
}

// AppendDelta appends delta to the trailing message if it has the given ID
// and is still streaming. ok is false when the stream has been superseded.
//
// Unlike the other helpers it updates history in place, so the caller must
// own the slice. Only the last element is replaced.
func AppendDelta(history []Message, id, delta string) (ok bool) {
	last := len(history) - 1
	if last < 0 || history[last].ID != id || !history[last].IsStreaming {
		return false
	}
	history[last] = history[last].WithDelta(delta)
	return true
}

// FinalizeID marks the message with the given ID as finished. ok is false
// when no streaming message has that ID.
func FinalizeID(history []Message, id string) (out []Message, ok bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID != id {
			continue
		}
		if !history[i].IsStreaming {
			return history, false
		}
		out = Append(history[:i], history[i].Finalized())
		return append(out, history[i+1:]...), true
	}
	return history, false
}

// ToWire converts history to /api/chat messages.
func ToWire(history []Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(history))
	for _, m := range history {
		out = append(out, m.Wire())
	}
	return out
}
