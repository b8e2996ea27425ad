// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
)

// =============================================================================
// ERROR PATTERNS
// =============================================================================

// ErrorPattern maps keywords found in an error message to a tip.
type ErrorPattern struct {
	Keywords []string // case-insensitive, any match
	Title    string
	Tip      string
}

// DefaultErrorPatterns covers the failures a phone user typically hits.
var DefaultErrorPatterns = []ErrorPattern{
	{
		Keywords: []string{"cannot connect", "connection refused", "is ollama running"},
		Title:    "Server not reachable",
		Tip:      "Start it with `ollama serve`, or Ctrl+S then Ctrl+T to start it over SSH.",
	},
	{
		Keywords: []string{"timed out", "timeout", "deadline exceeded"},
		Title:    "Server too slow",
		Tip:      "The model may still be loading. Try again in a moment.",
	},
	{
		Keywords: []string{"not found", "http 404"},
		Title:    "Model not found",
		Tip:      "Download it with Ctrl+O, or pick another model with Tab.",
	},
	{
		Keywords: []string{"no such host", "server misbehaving"},
		Title:    "Unknown host",
		Tip:      "Check the server URL in settings (Ctrl+S).",
	},
	{
		Keywords: []string{"ssh credentials not configured"},
		Title:    "SSH not set up",
		Tip:      "Enter host, user and password with Ctrl+E on the settings screen.",
	},
}

// MatchError returns the first pattern matching message.
func MatchError(message string) (ErrorPattern, bool) {
	lower := strings.ToLower(message)
	for _, p := range DefaultErrorPatterns {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				return p, true
			}
		}
	}
	return ErrorPattern{}, false
}

// =============================================================================
// ERROR BANNER
// =============================================================================

// ErrorBanner renders the dismissible error box above the chat input.
type ErrorBanner struct {
	Message string
	Detail  string // optional second line, e.g. the raw model-list error
	Width   int

	theme *styles.Theme
}

// NewErrorBanner creates a banner for message.
func NewErrorBanner(theme *styles.Theme, message string) ErrorBanner {
	return ErrorBanner{Message: message, Width: 80, theme: theme}
}

// View renders the banner, or "" when there is nothing to show.
func (b ErrorBanner) View() string {
	if b.Message == "" && b.Detail == "" {
		return ""
	}

	title := "Error"
	var tip string
	if p, ok := MatchError(b.Message + " " + b.Detail); ok {
		title, tip = p.Title, p.Tip
	}

	lines := []string{
		b.theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + title),
	}
	if b.Message != "" {
		lines = append(lines, b.theme.ErrorMessage.Render(b.Message))
	}
	if b.Detail != "" && b.Detail != b.Message {
		lines = append(lines, b.theme.ErrorMessage.Render(b.Detail))
	}
	if tip != "" {
		lines = append(lines, b.theme.ErrorTip.Render(tip))
	}
	lines = append(lines, b.theme.Hint.Render("Esc to dismiss"))

	width := b.Width - 2
	if width < 20 {
		width = 20
	}
	return b.theme.ErrorBox.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
