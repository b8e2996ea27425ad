// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the ollama-mobile packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing (temp file, fsync, rename)
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: column-aware truncation for terminal layout
//   - SingleLine: collapse multi-line errors for status lines
//   - FormatBytes: human-readable model sizes
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.TruncateWidth(model.Name, 24)
package util
