// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the screens of the ollama-mobile TUI.

A single Bubble Tea Model renders five screens: the first-launch guide,
the chat, settings, model download and SSH login. The model holds no chat
logic of its own. It renders the latest chatstate.State snapshot and calls
the Controller (normally a *chatstate.Container) for every user action.

# Usage

	container := chatstate.New(repo, chatstate.WithRunner(runner))
	states, unsubscribe := container.Subscribe()
	defer unsubscribe()

	m := chat.New(chat.Options{
		Theme:       styles.NewTheme(styles.ModeAuto),
		Controller:  container,
		States:      states,
		Initial:     container.State(),
		FirstLaunch: prefs.NewFirstLaunch(dir),
		Credentials: remote.NewCredentialStore(dir),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
