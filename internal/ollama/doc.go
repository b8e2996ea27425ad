// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// # Key Types
//
//   - Client: one server, one base URL; ListModels, Ping, ChatStream, Pull
//   - ModelInfo: a /api/tags entry with nil optional fields
//   - StreamReader: NDJSON reader for /api/chat responses
//   - ClientError: typed error (not running, timeout, HTTP status, ...)
//
// # Streaming
//
// ChatStream calls onDelta once per line that carries text. Blank and
// malformed lines are skipped; the first "done": true line ends the stream.
//
//	err := client.ChatStream(ctx, "llama3", msgs, func(delta string) {
//	    fmt.Print(delta)
//	})
//
// # Timeouts
//
// Connect, read and write timeouts apply to each socket operation, so a
// reply that keeps producing tokens can run indefinitely while a server that
// goes silent fails after the read timeout. There are no retries.
package ollama
