// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists the few values ollama-mobile keeps between runs.
//
// Three small TOML files live in the data directory:
//
//	ollama_mobile.toml       base_url
//	first_launch_prefs.toml  is_first_launch
//	ssh_prefs.toml           hostname, username, password (plaintext)
//
// Store is the generic key-value file; Preferences and FirstLaunch are typed
// views over it. Watcher notices edits made outside the process so the
// running UI can pick up a new base URL.
package prefs
