// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the rendering pieces shared by the ollama-mobile
screens. Components are plain values rendered by View or Render; they keep
no Bubble Tea state of their own.

# Display Components

Header (header.go) - Title bar with model, server URL and streaming spinner.
StatusBar (statusbar.go) - Key hints built from bubbles/key bindings.
MessageView (message.go) - Role label and bubble per chat message.
ErrorBanner (error.go) - Dismissible error box with a tip matched from the message.

# Text Rendering

MarkdownRenderer (markdown.go) - glamour rendering of finished replies, cached per width.
CodeBlock (codeblock.go) - Chroma highlighting of fenced blocks and shell commands.

Usage:

	theme := styles.NewTheme("auto")
	mv := components.NewMessageView(theme, components.NewMarkdownRenderer(theme.MarkdownStyle()))
	mv.Width = width
	content := mv.RenderAll(state.Messages)
*/
package components
