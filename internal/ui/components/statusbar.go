// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar shows key hints on the left and a short status on the right.
// Hints that do not fit are dropped from the end.
type StatusBar struct {
	Bindings []key.Binding
	Status   string
	Width    int

	theme *styles.Theme
}

// NewStatusBar creates a status bar for bindings.
func NewStatusBar(theme *styles.Theme, bindings []key.Binding) StatusBar {
	return StatusBar{Bindings: bindings, Width: 80, theme: theme}
}

// View renders the bar.
func (s StatusBar) View() string {
	width := s.Width
	if width < 20 {
		width = 20
	}
	inner := width - 2

	status := s.theme.ShortcutDesc.Render(s.Status)
	room := inner - lipgloss.Width(status) - 1

	var hints []string
	used := 0
	for _, b := range s.Bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		hint := s.theme.ShortcutKey.Render(h.Key) + " " + s.theme.ShortcutDesc.Render(h.Desc)
		w := lipgloss.Width(hint)
		if used > 0 {
			w += 2
		}
		if used+w > room {
			break
		}
		hints = append(hints, hint)
		used += w
	}

	left := strings.Join(hints, "  ")
	gap := inner - lipgloss.Width(left) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + status)
}
