// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ollamamobile/ollama-mobile/internal/chatstate"
	"github.com/ollamamobile/ollama-mobile/internal/ui/components"
	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
)

// Commands shown on the setup guide.
const (
	installCommand = "curl -fsSL https://ollama.com/install.sh | sh"
	serveCommand   = "ollama serve"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m Model) View() string {
	switch m.screen {
	case ScreenGuide:
		return m.renderGuide()
	case ScreenSettings:
		return m.renderSettings()
	case ScreenDownload:
		return m.renderDownload()
	case ScreenSSH:
		return m.renderSSH()
	default:
		return m.renderChat()
	}
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

func (m Model) renderChat() string {
	parts := []string{m.renderHeader(), m.viewport.View()}
	if banner := m.renderBanner(); banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	h := components.NewHeader(m.theme)
	h.Width = m.width
	h.ModelName = m.state.SelectedModel
	h.BaseURL = m.state.BaseURL
	h.Loading = m.state.LoadingModels
	h.Streaming = m.state.IsStreaming
	h.Spinner = m.spinner.View()
	return h.View()
}

// renderBanner shows the chat error, or the model-list error when there is
// no chat error.
func (m Model) renderBanner() string {
	msg, detail := m.state.ConnectionError, ""
	if msg == "" {
		msg = m.state.ModelsError
	} else if m.state.ModelsError != "" {
		detail = m.state.ModelsError
	}
	if msg == "" {
		return ""
	}
	b := components.NewErrorBanner(m.theme, msg)
	b.Detail = detail
	b.Width = m.width
	return b.View()
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	bar := components.NewStatusBar(m.theme, m.keys.ScreenHelp(m.screen))
	bar.Width = m.width
	bar.Status = m.statusText()
	return bar.View()
}

func (m Model) statusText() string {
	switch {
	case m.state.Downloading:
		return m.state.DownloadStatus
	case m.state.SSHRunning:
		return m.state.SSHStatus
	case len(m.state.Models) > 0:
		return fmt.Sprintf("%d models", len(m.state.Models))
	default:
		return ""
	}
}

// emptyChat is shown in the viewport before the first message.
func (m Model) emptyChat() string {
	var lines []string
	switch {
	case m.state.LoadingModels:
		lines = append(lines, m.theme.ThinkingText.Render("Loading models..."))
	case len(m.state.Models) == 0:
		lines = append(lines,
			m.theme.WarningStyle.Render("No models available."),
			m.theme.Hint.Render("Press Ctrl+O to download one, or Ctrl+R to retry."),
		)
	default:
		lines = append(lines,
			m.theme.InfoStyle.Render("Chatting with "+m.state.SelectedModel),
			m.theme.Hint.Render("Type a message and press Enter."),
		)
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// GUIDE SCREEN
// =============================================================================

func (m Model) renderGuide() string {
	step := func(n int, text string) string {
		return m.theme.StepNumber.Render(strconv.Itoa(n)+".") + " " + text
	}

	lines := []string{
		m.theme.PanelTitle.Render("Welcome to ollama-mobile"),
		"This app talks to an Ollama server. To run one on this device:",
		"",
		step(1, "Install Ollama:"),
		"   " + components.RenderCommand(installCommand),
		"",
		step(2, "Start the server:"),
		"   " + components.RenderCommand(serveCommand),
		"",
		step(3, "Download a model from the chat screen with Ctrl+O."),
		"",
		m.theme.Hint.Render("Using a server elsewhere? Set its URL in settings (Ctrl+S)."),
	}
	return m.renderPanel(lines)
}

// =============================================================================
// SETTINGS SCREEN
// =============================================================================

func (m Model) renderSettings() string {
	lines := []string{
		m.theme.PanelTitle.Render("Settings"),
		m.theme.FieldLabel.Render("Ollama server URL"),
		m.urlInput.View(),
		m.theme.Hint.Render("Current: " + m.state.BaseURL),
		"",
		m.theme.FieldLabel.Render("Remote start"),
		m.sshLine(),
	}
	if m.creds == nil {
		lines = append(lines, m.theme.Hint.Render("SSH login is not available."))
	}
	return m.renderPanel(m.withNotice(lines))
}

func (m Model) sshLine() string {
	switch {
	case m.state.SSHRunning:
		return m.spinner.View() + " " + m.theme.ThinkingText.Render(m.state.SSHStatus)
	case m.state.SSHStatus == "":
		return m.theme.Hint.Render("Ctrl+T runs `ollama serve` on the SSH host.")
	case m.state.SSHStatus == chatstate.SSHStarted:
		return m.theme.SuccessStyle.Render(styles.StatusIndicators.Success + " " + m.state.SSHStatus)
	default:
		return m.theme.ErrorStyle.Render(m.state.SSHStatus)
	}
}

// =============================================================================
// DOWNLOAD SCREEN
// =============================================================================

func (m Model) renderDownload() string {
	lines := []string{
		m.theme.PanelTitle.Render("Download model"),
		m.theme.FieldLabel.Render("Model name"),
		m.downloadInput.View(),
		"",
	}

	status := m.state.DownloadStatus
	switch {
	case status == "":
		lines = append(lines, m.theme.Hint.Render("Browse names at https://ollama.com/library"))
	case m.state.Downloading:
		lines = append(lines, m.spinner.View()+" "+status)
		if pct, ok := statusPercent(status); ok {
			lines = append(lines, styles.RenderProgressBar(m.panelWidth()-6, float64(pct)))
		}
	case strings.HasPrefix(status, "Download failed"):
		lines = append(lines, m.theme.ErrorStyle.Render(status))
	default:
		lines = append(lines, m.theme.InfoStyle.Render(status))
	}
	return m.renderPanel(lines)
}

// statusPercent extracts the trailing "NN%" of a progress status line.
func statusPercent(status string) (int, bool) {
	i := strings.LastIndexByte(status, ' ')
	tail := strings.TrimSuffix(status[i+1:], "%")
	if len(tail) == len(status[i+1:]) {
		return 0, false
	}
	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// =============================================================================
// SSH SCREEN
// =============================================================================

func (m Model) renderSSH() string {
	labels := [fieldCount]string{"Hostname", "Username", "Password"}
	lines := []string{m.theme.PanelTitle.Render("SSH login")}
	for i, label := range labels {
		style := m.theme.FieldLabel
		if i == m.sshFocus {
			style = m.theme.FieldFocused
		}
		lines = append(lines, style.Render(label), m.sshInputs[i].View())
	}
	lines = append(lines, "", m.theme.Hint.Render("Used to run `ollama serve` on a remote machine."))
	return m.renderPanel(m.withNotice(lines))
}

// =============================================================================
// SHARED
// =============================================================================

func (m Model) withNotice(lines []string) []string {
	if m.notice == "" {
		return lines
	}
	style := m.theme.SuccessStyle
	if m.noticeError {
		style = m.theme.ErrorStyle
	}
	return append(lines, "", style.Render(m.notice))
}

func (m Model) panelWidth() int {
	w := m.width - 4
	if w > 72 {
		w = 72
	}
	if w < 24 {
		w = 24
	}
	return w
}

// renderPanel frames a form screen and puts the status bar below it.
func (m Model) renderPanel(lines []string) string {
	panel := m.theme.Panel.Width(m.panelWidth()).Render(strings.Join(lines, "\n"))
	bar := m.renderStatusBar()
	gap := m.height - lipgloss.Height(panel) - lipgloss.Height(bar)
	if gap < 0 {
		gap = 0
	}
	return panel + strings.Repeat("\n", gap+1) + bar
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the viewport and inputs to the terminal.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth
	m.urlInput.Width = m.panelWidth() - 8
	m.downloadInput.Width = m.panelWidth() - 8
	for i := range m.sshInputs {
		m.sshInputs[i].Width = m.panelWidth() - 8
	}

	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderStatusBar())
	if banner := m.renderBanner(); banner != "" {
		chrome += lipgloss.Height(banner)
	}

	height := m.height - chrome
	if height < 3 {
		height = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
}

// refreshViewport re-renders the conversation into the viewport.
func (m *Model) refreshViewport() {
	m.layout()

	wrap := m.width
	if m.wordWrap > 0 && m.wordWrap < wrap {
		wrap = m.wordWrap
	}
	m.messages.Width = wrap

	if len(m.state.Messages) == 0 {
		m.viewport.SetContent(m.emptyChat())
		return
	}
	m.viewport.SetContent(m.messages.RenderAll(m.state.Messages))
}
