// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ollamamobile/ollama-mobile/internal/model"
	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// MessageView renders chat messages for the viewport.
//
// Finished assistant replies go through glamour; a reply that is still
// streaming only gets its code blocks highlighted, since partial markdown
// re-renders badly.
type MessageView struct {
	theme    *styles.Theme
	markdown *MarkdownRenderer
	Width    int
	Cursor   string // appended to a streaming reply
}

// NewMessageView creates a view. markdown may be nil to disable glamour.
func NewMessageView(theme *styles.Theme, markdown *MarkdownRenderer) *MessageView {
	return &MessageView{theme: theme, markdown: markdown, Width: 80, Cursor: "_"}
}

// Render renders one message with its role label.
func (v *MessageView) Render(m model.Message) string {
	width := v.Width - 2
	if width < 20 {
		width = 20
	}
	body := width - 4

	label := v.theme.RoleLabel.Render(m.Role.DisplayName())

	var content string
	var bubble lipgloss.Style
	switch m.Role {
	case model.RoleUser:
		bubble = v.theme.UserBubble
		content = lipgloss.NewStyle().Width(body).Render(m.Content)
	case model.RoleAssistant:
		bubble = v.theme.AssistantBubble
		content = v.assistantContent(m, body)
	default:
		bubble = v.theme.SystemBubble
		content = lipgloss.NewStyle().Width(body).Render(m.Content)
	}

	return label + "\n" + bubble.Width(width).Render(content)
}

func (v *MessageView) assistantContent(m model.Message, width int) string {
	switch {
	case m.IsStreaming:
		return ParseCodeBlocks(m.Content, width) + v.Cursor
	case strings.TrimSpace(m.Content) == "":
		return v.theme.EmptyReply.Render("(no response)")
	case v.markdown != nil:
		return v.markdown.Render(m.Content, width)
	default:
		return ParseCodeBlocks(m.Content, width)
	}
}

// RenderAll renders the conversation, oldest first, separated by blank lines.
func (v *MessageView) RenderAll(messages []model.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, v.Render(m))
	}
	return strings.Join(parts, "\n\n")
}
