// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote runs shell commands on the machine hosting the Ollama
// server over SSH, using a single saved password login.
package remote
