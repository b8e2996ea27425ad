// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstate

import (
	"fmt"

	"github.com/ollamamobile/ollama-mobile/internal/model"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/util"
)

// User-facing status strings.
const (
	ConnectionHint     = "Is Ollama running? (e.g. in Termux: ollama serve)"
	ModelsLoadFailed   = "Failed to load models"
	RequestFailed      = "Request failed"
	DownloadComplete   = "Download complete!"
	DownloadCancelled  = "Download cancelled"
	SSHStarting        = "Starting Ollama via SSH..."
	SSHStarted         = "Ollama started"
	sshRunnerMissing   = "SSH is not available"
	downloadFailedText = "Download failed: "
)

// State is an immutable snapshot of the chat screen.
type State struct {
	Messages        []model.Message
	Models          []ollama.ModelInfo
	SelectedModel   string
	LoadingModels   bool
	ModelsError     string
	ConnectionError string
	IsStreaming     bool
	BaseURL         string

	DownloadStatus string
	Downloading    bool

	SSHStatus  string
	SSHRunning bool
}

// clone returns a copy that shares no slices with s.
func (s State) clone() State {
	if s.Messages != nil {
		s.Messages = append([]model.Message(nil), s.Messages...)
	}
	if s.Models != nil {
		s.Models = append([]ollama.ModelInfo(nil), s.Models...)
	}
	return s
}

// StreamingMessage returns the assistant message currently receiving
// deltas, if any.
func (s State) StreamingMessage() (model.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsStreaming {
			return s.Messages[i], true
		}
	}
	return model.Message{}, false
}

// HasModel reports whether name is in the loaded model list.
func (s State) HasModel(name string) bool {
	for _, m := range s.Models {
		if m.Name == name {
			return true
		}
	}
	return false
}

func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if text := util.SingleLine(err.Error()); text != "" {
		return text
	}
	return fallback
}

func progressText(p ollama.PullProgress) string {
	if pct := p.Percent(); pct >= 0 {
		return fmt.Sprintf("%s %d%%", p.Status, pct)
	}
	return p.Status
}
