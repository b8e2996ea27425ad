// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatstate holds the observable state behind the chat screens:
// conversation, model list, selection, errors, download and SSH status.
//
// Operations return immediately; network work runs on goroutines and
// reports back through the container's serialized update path.
//
//	c := chatstate.New(repo, chatstate.WithRunner(runner))
//	defer c.Close()
//	states, unsubscribe := c.Subscribe()
//	defer unsubscribe()
//	c.SendMessage("Why is the sky blue?")
//	for s := range states {
//		render(s)
//	}
package chatstate
