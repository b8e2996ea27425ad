// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repository holds the configured server URL and forwards calls to a
// freshly built ollama.Client bound to it.
//
//	repo := repository.New(prefs.NewPreferences(dir), config.DefaultBaseURL)
//	models, err := repo.ListModels(ctx)
//	_, err = repo.SetBaseURL(" http://192.168.1.20:11434/ ") // stored as http://192.168.1.20:11434
package repository
