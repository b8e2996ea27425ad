// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ollamamobile/ollama-mobile/internal/chatstate"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/remote"
)

// Notices shown on the form screens.
const (
	noticeFieldsRequired = "Hostname, username and password are required"
	noticeSaved          = "Saved"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshViewport()
		return m, nil

	case StateMsg:
		m.applyState(msg.State)
		return m, WaitForState(m.states)

	case StatesClosedMsg:
		return m, nil

	case ScreenMsg:
		m.switchScreen(msg.Screen)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.screen {
		case ScreenGuide:
			return m.updateGuide(msg)
		case ScreenSettings:
			return m.updateSettings(msg)
		case ScreenDownload:
			return m.updateDownload(msg)
		case ScreenSSH:
			return m.updateSSH(msg)
		default:
			return m.updateChat(msg)
		}
	}

	// Cursor blink and other input messages.
	return m.updateFocusedInput(msg)
}

// applyState stores a new snapshot. Finishing a download on the download
// screen returns to the chat.
func (m *Model) applyState(s chatstate.State) {
	prev := m.state
	m.state = s

	if m.screen == ScreenDownload &&
		prev.DownloadStatus != s.DownloadStatus &&
		s.DownloadStatus == chatstate.DownloadComplete {
		m.switchScreen(ScreenChat)
	}

	atBottom := m.viewport.AtBottom()
	m.refreshViewport()
	if atBottom || s.IsStreaming && !prev.IsStreaming {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// SCREENS
// =============================================================================

func (m Model) updateGuide(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Continue) {
		return m, nil
	}
	if m.firstLaunch != nil {
		if err := m.firstLaunch.SetFirstLaunchCompleted(); err != nil {
			log.Printf("FIRST_LAUNCH_SAVE_FAILED | error=%v", err)
		}
	}
	m.switchScreen(ScreenChat)
	return m, nil
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Send):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.state.SelectedModel == "" {
			return m, nil
		}
		m.ctrl.SendMessage(text)
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewChat()
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.ctrl.LoadModels()
		return m, nil

	case key.Matches(msg, m.keys.NextModel), key.Matches(msg, m.keys.PrevModel):
		dir := 1
		if key.Matches(msg, m.keys.PrevModel) {
			dir = -1
		}
		if name := nextModel(m.state.Models, m.state.SelectedModel, dir); name != "" {
			m.ctrl.SetSelectedModel(name)
		}
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		m.switchScreen(ScreenSettings)
		return m, nil

	case key.Matches(msg, m.keys.Download):
		m.switchScreen(ScreenDownload)
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.state.ConnectionError != "" || m.state.ModelsError != "" {
			m.ctrl.ClearError()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		if err := m.ctrl.SetBaseURL(m.urlInput.Value()); err != nil {
			m.setNotice(err.Error(), true)
			return m, nil
		}
		m.switchScreen(ScreenChat)
		return m, nil

	case key.Matches(msg, m.keys.SSHSettings):
		if m.creds != nil {
			m.switchScreen(ScreenSSH)
		}
		return m, nil

	case key.Matches(msg, m.keys.StartSSH):
		m.ctrl.StartOllamaViaSSH()
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.switchScreen(ScreenChat)
		return m, nil
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func (m Model) updateDownload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.StartDownload):
		name := strings.TrimSpace(m.downloadInput.Value())
		if name != "" && !m.state.Downloading {
			m.ctrl.DownloadModel(name)
		}
		return m, nil

	case key.Matches(msg, m.keys.CancelDownload):
		if m.state.Downloading {
			m.ctrl.CancelDownload()
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.switchScreen(ScreenChat)
		return m, nil
	}

	var cmd tea.Cmd
	m.downloadInput, cmd = m.downloadInput.Update(msg)
	return m, cmd
}

func (m Model) updateSSH(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		creds := remote.Credentials{
			Hostname: strings.TrimSpace(m.sshInputs[fieldHost].Value()),
			Username: strings.TrimSpace(m.sshInputs[fieldUser].Value()),
			Password: m.sshInputs[fieldPassword].Value(),
		}
		if !creds.Complete() {
			m.setNotice(noticeFieldsRequired, true)
			return m, nil
		}
		if err := m.creds.Save(creds); err != nil {
			log.Printf("SSH_CREDENTIALS_SAVE_FAILED | error=%v", err)
			m.setNotice(err.Error(), true)
			return m, nil
		}
		m.switchScreen(ScreenSettings)
		m.setNotice(noticeSaved, false)
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.focusField((m.sshFocus + 1) % fieldCount)
		return m, nil

	case key.Matches(msg, m.keys.PrevField):
		m.focusField((m.sshFocus + fieldCount - 1) % fieldCount)
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.switchScreen(ScreenSettings)
		return m, nil
	}

	var cmd tea.Cmd
	m.sshInputs[m.sshFocus], cmd = m.sshInputs[m.sshFocus].Update(msg)
	return m, cmd
}

// updateFocusedInput forwards non-key messages to the input of the screen.
func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenChat:
		m.input, cmd = m.input.Update(msg)
	case ScreenSettings:
		m.urlInput, cmd = m.urlInput.Update(msg)
	case ScreenDownload:
		m.downloadInput, cmd = m.downloadInput.Update(msg)
	case ScreenSSH:
		m.sshInputs[m.sshFocus], cmd = m.sshInputs[m.sshFocus].Update(msg)
	}
	return m, cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// switchScreen changes the visible screen and moves focus to its input.
func (m *Model) switchScreen(s Screen) {
	m.screen = s
	m.notice, m.noticeError = "", false

	m.input.Blur()
	m.urlInput.Blur()
	m.downloadInput.Blur()
	for i := range m.sshInputs {
		m.sshInputs[i].Blur()
	}

	switch s {
	case ScreenChat:
		m.input.Focus()
	case ScreenSettings:
		m.urlInput.SetValue(m.state.BaseURL)
		m.urlInput.CursorEnd()
		m.urlInput.Focus()
	case ScreenDownload:
		m.downloadInput.Focus()
	case ScreenSSH:
		m.loadCredentials()
		m.focusField(fieldHost)
	}
	m.layout()
}

func (m *Model) loadCredentials() {
	if m.creds == nil {
		return
	}
	creds, _ := m.creds.Load()
	m.sshInputs[fieldHost].SetValue(creds.Hostname)
	m.sshInputs[fieldUser].SetValue(creds.Username)
	m.sshInputs[fieldPassword].SetValue(creds.Password)
}

func (m *Model) focusField(i int) {
	m.sshInputs[m.sshFocus].Blur()
	m.sshFocus = i
	m.sshInputs[i].Focus()
}

func (m *Model) setNotice(text string, isError bool) {
	m.notice, m.noticeError = text, isError
}

// nextModel returns the model dir steps from current, wrapping around.
// With no current selection it returns the first model.
func nextModel(models []ollama.ModelInfo, current string, dir int) string {
	n := len(models)
	if n == 0 {
		return ""
	}
	idx := -1
	for i, mi := range models {
		if mi.Name == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models[0].Name
	}
	return models[((idx+dir)%n+n)%n].Name
}
