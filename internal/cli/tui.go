// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat, the default command.

package cli

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ollamamobile/ollama-mobile/internal/chatstate"
	"github.com/ollamamobile/ollama-mobile/internal/prefs"
	"github.com/ollamamobile/ollama-mobile/internal/ui/chat"
	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
)

// runTUI wires the chat state container to the screens and runs the
// Bubble Tea program until the user quits.
func runTUI(ctx context.Context, app *App) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logPath, err := app.Config.LogPath()
	if err != nil {
		return NewCommandError("tui", "start", "no log file", err)
	}
	logFile, err := tea.LogToFile(logPath, "ollama-mobile")
	if err != nil {
		return NewCommandError("tui", "start", "cannot open log file", err)
	}
	defer logFile.Close()
	log.Printf("TUI_START | version=%s data_dir=%s", Version, app.DataDir)

	p := app.preferences()
	repo := app.repository(p)
	creds := app.credentials()

	container := chatstate.New(repo,
		chatstate.WithRunner(app.runner(creds)),
		chatstate.WithStartCommand(app.Config.SSH.StartCommand),
	)
	defer container.Close()

	// Pick up base URL edits made by another process, e.g. "ollama-mobile url".
	if w, err := prefs.NewWatcher(app.DataDir, prefs.DefaultDebounce); err != nil {
		log.Printf("PREFS_WATCH_FAILED | error=%v", err)
	} else {
		w.On(p.Store(), container.ReloadBaseURL)
		go w.Run(ctx)
	}

	states, unsubscribe := container.Subscribe()
	defer unsubscribe()

	m := chat.New(chat.Options{
		Theme:       styles.NewTheme(app.Config.UI.Theme),
		Controller:  container,
		States:      states,
		Initial:     container.State(),
		FirstLaunch: prefs.NewFirstLaunch(app.DataDir),
		Credentials: creds,
		WordWrap:    app.Config.UI.WordWrap,
	})

	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	log.Printf("TUI_EXIT")
	return nil
}
