// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ollamamobile/ollama-mobile/internal/chatstate"
	"github.com/ollamamobile/ollama-mobile/internal/remote"
	"github.com/ollamamobile/ollama-mobile/internal/ui/components"
	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Controller is the set of chat operations the screens trigger.
// *chatstate.Container implements it.
type Controller interface {
	LoadModels()
	SetSelectedModel(name string)
	SendMessage(text string)
	NewChat()
	ClearError()
	SetBaseURL(raw string) error
	DownloadModel(name string)
	CancelDownload()
	StartOllamaViaSSH()
}

var _ Controller = (*chatstate.Container)(nil)

// FirstLaunch records whether the setup guide has been seen.
type FirstLaunch interface {
	IsFirstLaunch() bool
	SetFirstLaunchCompleted() error
}

// Credentials loads and saves the SSH login.
type Credentials interface {
	Load() (remote.Credentials, bool)
	Save(remote.Credentials) error
}

// Options wires a Model to its dependencies.
type Options struct {
	Theme       *styles.Theme
	Controller  Controller
	States      <-chan chatstate.State
	Initial     chatstate.State
	FirstLaunch FirstLaunch // nil skips the guide
	Credentials Credentials // nil disables the SSH screen
	WordWrap    int         // 0 wraps at the terminal width
}

// =============================================================================
// MODEL
// =============================================================================

// Screen identifies the visible screen.
type Screen int

const (
	ScreenChat Screen = iota
	ScreenGuide
	ScreenSettings
	ScreenDownload
	ScreenSSH
)

func (s Screen) String() string {
	switch s {
	case ScreenGuide:
		return "guide"
	case ScreenSettings:
		return "settings"
	case ScreenDownload:
		return "download"
	case ScreenSSH:
		return "ssh"
	default:
		return "chat"
	}
}

// SSH form fields, in focus order.
const (
	fieldHost = iota
	fieldUser
	fieldPassword
	fieldCount
)

// Model is the Bubble Tea model for all screens. It renders snapshots from
// the chat state container and forwards user actions to the Controller.
type Model struct {
	theme       *styles.Theme
	keys        KeyMap
	ctrl        Controller
	states      <-chan chatstate.State
	firstLaunch FirstLaunch
	creds       Credentials

	state  chatstate.State
	screen Screen

	width    int
	height   int
	wordWrap int

	viewport      viewport.Model
	input         textinput.Model
	urlInput      textinput.Model
	downloadInput textinput.Model
	sshInputs     [fieldCount]textinput.Model
	sshFocus      int
	spinner       spinner.Model
	messages      *components.MessageView

	// notice is transient feedback on the form screens.
	notice      string
	noticeError bool
}

// New creates the model. The guide is shown first on a first launch.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Message"
	input.CharLimit = 8192
	input.Focus()

	urlInput := textinput.New()
	urlInput.Prompt = "> "
	urlInput.Placeholder = "http://127.0.0.1:11434"
	urlInput.CharLimit = 512

	downloadInput := textinput.New()
	downloadInput.Prompt = "> "
	downloadInput.Placeholder = "e.g. llama3.2:1b"
	downloadInput.CharLimit = 256

	var sshInputs [fieldCount]textinput.Model
	for i, placeholder := range []string{"hostname or host:port", "username", "password"} {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = placeholder
		ti.CharLimit = 256
		sshInputs[i] = ti
	}
	sshInputs[fieldPassword].EchoMode = textinput.EchoPassword
	sshInputs[fieldPassword].EchoCharacter = '*'

	sp := spinner.New()
	sp.Spinner = styles.StreamSpinner
	sp.Style = theme.Spinner

	m := Model{
		theme:         theme,
		keys:          DefaultKeyMap(),
		ctrl:          opts.Controller,
		states:        opts.States,
		firstLaunch:   opts.FirstLaunch,
		creds:         opts.Credentials,
		state:         opts.Initial,
		screen:        ScreenChat,
		width:         80,
		height:        24,
		wordWrap:      opts.WordWrap,
		viewport:      viewport.New(80, 20),
		input:         input,
		urlInput:      urlInput,
		downloadInput: downloadInput,
		sshInputs:     sshInputs,
		spinner:       sp,
		messages:      components.NewMessageView(theme, components.NewMarkdownRenderer(theme.MarkdownStyle())),
	}

	if m.firstLaunch != nil && m.firstLaunch.IsFirstLaunch() {
		m.screen = ScreenGuide
		m.input.Blur()
	}

	m.layout()
	m.refreshViewport()
	return m
}

// Init starts listening for state snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, WaitForState(m.states))
}

// Screen returns the visible screen.
func (m Model) Screen() Screen { return m.screen }

// State returns the last snapshot received.
func (m Model) State() chatstate.State { return m.state }
