// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
	"github.com/ollamamobile/ollama-mobile/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the one-line title bar of the chat screen.
type Header struct {
	Title     string
	ModelName string
	BaseURL   string
	Width     int

	Loading   bool   // model list loading
	Streaming bool   // reply in progress
	Spinner   string // current spinner frame

	theme *styles.Theme
}

// NewHeader creates a header with the application title.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "ollama-mobile",
		Width: 80,
		theme: theme,
	}
}

// View renders the header. On narrow terminals the URL is dropped first,
// then the model name is truncated.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	inner := width - 2

	brand := h.theme.HeaderBrand.Render(h.Title)

	model := h.ModelName
	if model == "" {
		model = "no model"
	}

	var status string
	switch {
	case h.Streaming:
		status = h.theme.Spinner.Render(h.Spinner) + " " + h.theme.ThinkingText.Render("generating")
	case h.Loading:
		status = h.theme.ThinkingText.Render("loading models...")
	}

	left := brand + "  " + h.theme.HeaderTitle.Render(util.TruncateWidth(model, inner/3))
	right := status

	if url := h.BaseURL; url != "" && h.theme.GetLayoutMode() != styles.LayoutNarrow {
		room := inner - lipgloss.Width(left) - lipgloss.Width(right) - 4
		if room >= 12 {
			right = h.theme.HeaderSubtitle.Render(util.TruncateWidth(url, room)) + joinSep(right)
		}
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func joinSep(s string) string {
	if s == "" {
		return ""
	}
	return "  " + s
}
