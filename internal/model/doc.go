// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// # Key Types
//
//   - Message: immutable chat message value (ID, role, content, streaming flag)
//   - Role: user, assistant or system
//
// # History helpers
//
// Append and FinalizeID return new slices and never touch the one passed
// in. AppendDelta replaces the trailing message in place; it is meant for a
// history the caller owns, such as the state a container copies before
// publishing.
//
//	history = model.Append(history, model.NewUserMessage(text), model.NewStreamingAssistant(id))
//	ok := model.AppendDelta(history, id, delta)
package model
