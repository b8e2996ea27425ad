// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of every screen. Ctrl chords are used
// throughout so plain letters always reach the text inputs.
type KeyMap struct {
	// Global
	Quit key.Binding

	// Chat
	Send      key.Binding
	NewChat   key.Binding
	Reload    key.Binding
	NextModel key.Binding
	PrevModel key.Binding
	Settings  key.Binding
	Download  key.Binding
	Dismiss   key.Binding
	PageUp    key.Binding
	PageDown  key.Binding

	// Settings
	Save        key.Binding
	SSHSettings key.Binding
	StartSSH    key.Binding
	Back        key.Binding

	// Download
	StartDownload  key.Binding
	CancelDownload key.Binding

	// SSH settings
	NextField key.Binding
	PrevField key.Binding

	// Guide
	Continue key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reload models"),
		),
		NextModel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next model"),
		),
		PrevModel: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "prev model"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "settings"),
		),
		Download: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "download"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "dismiss error"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Save: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "save"),
		),
		SSHSettings: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "SSH login"),
		),
		StartSSH: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "start Ollama via SSH"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		StartDownload: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "download"),
		),
		CancelDownload: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "cancel download"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("S-Tab", "prev field"),
		),
		Continue: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "continue"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ScreenHelp returns the bindings shown in the status bar of screen.
func (k KeyMap) ScreenHelp(screen Screen) []key.Binding {
	switch screen {
	case ScreenGuide:
		return []key.Binding{k.Continue, k.Quit}
	case ScreenSettings:
		return []key.Binding{k.Save, k.SSHSettings, k.StartSSH, k.Back}
	case ScreenDownload:
		return []key.Binding{k.StartDownload, k.CancelDownload, k.Back}
	case ScreenSSH:
		return []key.Binding{k.Save, k.NextField, k.Back}
	default:
		return []key.Binding{k.Send, k.NextModel, k.NewChat, k.Settings, k.Download, k.Reload, k.Quit}
	}
}
