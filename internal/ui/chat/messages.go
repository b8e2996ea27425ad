// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ollamamobile/ollama-mobile/internal/chatstate"
)

// =============================================================================
// STATE MESSAGES
// =============================================================================

// StateMsg delivers a new chat state snapshot.
type StateMsg struct {
	State chatstate.State
}

// StatesClosedMsg signals that the state channel was closed.
type StatesClosedMsg struct{}

// WaitForState blocks on the next snapshot from states. The model re-issues
// it after every StateMsg, so exactly one wait is pending at a time.
func WaitForState(states <-chan chatstate.State) tea.Cmd {
	if states == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return StatesClosedMsg{}
		}
		return StateMsg{State: s}
	}
}

// =============================================================================
// SCREEN MESSAGES
// =============================================================================

// ScreenMsg switches to another screen.
type ScreenMsg struct {
	Screen Screen
}

// SwitchScreen returns a command producing ScreenMsg.
func SwitchScreen(s Screen) tea.Cmd {
	return func() tea.Msg { return ScreenMsg{Screen: s} }
}
