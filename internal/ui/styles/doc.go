// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors, theme and small render helpers shared by
the ollama-mobile screens.

# Colors (colors.go)

All colors are lipgloss.AdaptiveColor values; which variant is used follows
the background chosen by NewTheme:

	Purple  - assistant messages, titles
	Cyan    - brand, user highlights, key hints
	Emerald - success
	Amber   - in-progress status
	Rose    - errors

Status lines pair color with an ASCII indicator ([OK], [X], [!], [i]) so
they stay readable on monochrome terminals.

# Theme (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme) // "auto", "dark" or "light"
	header := theme.Header.Width(w).Render(title)

"auto" asks the terminal (via termenv) whether its background is dark.

# Animations (animations.go)

StreamSpinner for the streaming indicator and RenderProgressBar for model
downloads.
*/
package styles
