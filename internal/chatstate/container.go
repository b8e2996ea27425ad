// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstate

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/ollamamobile/ollama-mobile/internal/config"
	"github.com/ollamamobile/ollama-mobile/internal/model"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/repository"
)

// Backend is the server access the container needs.
// *repository.Repository implements it.
type Backend interface {
	BaseURL() string
	SetBaseURL(raw string) (string, error)
	Reload() (string, bool)
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	ChatStream(ctx context.Context, model string, messages []ollama.Message, onDelta func(string)) error
	Pull(ctx context.Context, model string, onProgress func(ollama.PullProgress)) error
}

var _ Backend = (*repository.Repository)(nil)

// CommandRunner executes a shell command on a remote host.
type CommandRunner interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Option configures a Container.
type Option func(*Container)

// WithRunner sets the runner used by StartOllamaViaSSH.
func WithRunner(r CommandRunner) Option {
	return func(c *Container) { c.runner = r }
}

// WithStartCommand overrides the command StartOllamaViaSSH runs.
func WithStartCommand(cmd string) Option {
	return func(c *Container) {
		if cmd != "" {
			c.startCommand = cmd
		}
	}
}

// Container owns the chat state. Every transition happens under one mutex
// and each committed state is published to subscribers as a copy.
type Container struct {
	backend      Backend
	runner       CommandRunner
	startCommand string

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	stream *cancelManager
	models *cancelManager
	pull   *cancelManager
	ssh    *cancelManager

	mu        sync.Mutex
	state     State
	closed    bool
	streamID  string
	modelsGen uint64
	pullGen   uint64
	sshGen    uint64
	subs      map[int]chan State
	nextSub   int
}

// New creates a container bound to backend and starts loading the model list.
func New(backend Backend, opts ...Option) *Container {
	ctx, stop := context.WithCancel(context.Background())
	c := &Container{
		backend:      backend,
		startCommand: config.DefaultStartCommand,
		ctx:          ctx,
		stop:         stop,
		stream:       newCancelManager(),
		models:       newCancelManager(),
		pull:         newCancelManager(),
		ssh:          newCancelManager(),
		state:        State{BaseURL: backend.BaseURL()},
		subs:         make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.LoadModels()
	return c
}

// =============================================================================
// OBSERVATION
// =============================================================================

// State returns a snapshot of the current state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that always holds the most recent state.
// Intermediate states may be skipped when the reader falls behind. The
// current state is delivered immediately. The channel is closed by the
// returned func or by Close.
func (c *Container) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state.clone()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// Close cancels every background operation, waits for them to return and
// closes all subscriber channels. The container is unusable afterwards.
func (c *Container) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

// commit stores s and publishes it. Caller holds c.mu.
func (c *Container) commit(s State) {
	c.state = s
	snap := s.clone()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot; only this goroutine sends.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// mutate applies fn to a copy of the state and commits it when fn returns
// true. Results arriving after Close are dropped.
func (c *Container) mutate(fn func(s *State) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	s := c.state
	if fn(&s) {
		c.commit(s)
	}
}

// spawn runs fn on a tracked goroutine. Caller holds c.mu.
func (c *Container) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// =============================================================================
// MODELS
// =============================================================================

// LoadModels refreshes the model list in the background. A newer load
// supersedes an older one.
func (c *Container) LoadModels() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.modelsGen++
	gen := c.modelsGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.models.replace(cancel)

	s := c.state
	s.LoadingModels = true
	s.ModelsError = ""
	c.commit(s)

	c.spawn(func() {
		defer cancel()
		models, err := c.backend.ListModels(ctx)
		if ctx.Err() != nil {
			return
		}
		c.mutate(func(s *State) bool {
			if gen != c.modelsGen {
				return false
			}
			s.LoadingModels = false
			if err != nil {
				s.ModelsError = errorText(err, ModelsLoadFailed)
				s.ConnectionError = ConnectionHint
				log.Printf("MODELS_LOAD_FAILED | url=%s err=%v", s.BaseURL, err)
				return true
			}
			s.Models = models
			s.ModelsError = ""
			if s.SelectedModel == "" && len(models) > 0 {
				s.SelectedModel = models[0].Name
			}
			return true
		})
	})
}

// SetSelectedModel chooses the model used by SendMessage. Pass "" to clear.
func (c *Container) SetSelectedModel(name string) {
	c.mutate(func(s *State) bool {
		s.SelectedModel = name
		return true
	})
}

// =============================================================================
// CHAT
// =============================================================================

// SendMessage sends text as a user message and streams the reply into a new
// assistant message. Blank text, or no selected model, does nothing. A
// stream already in flight is cancelled and its message finalized with
// whatever it had received.
func (c *Container) SendMessage(text string) {
	content := strings.TrimSpace(text)
	if content == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.SelectedModel == "" {
		return
	}

	s := c.state
	if c.streamID != "" {
		s.Messages, _ = model.FinalizeID(s.Messages, c.streamID)
	}

	placeholder := model.NewStreamingAssistant("")
	userMsg := model.NewUserMessage(content)
	history := model.Append(s.Messages, userMsg)
	wire := model.ToWire(history)
	s.Messages = model.Append(history, placeholder)
	s.IsStreaming = true
	s.ConnectionError = ""

	id := placeholder.ID
	modelName := s.SelectedModel
	ctx, cancel := context.WithCancel(c.ctx)
	c.stream.replace(cancel)
	c.streamID = id
	c.commit(s)
	log.Printf("CHAT_SEND | model=%s messages=%d text=%q", modelName, len(wire), userMsg.Preview(40))

	c.spawn(func() {
		defer cancel()
		c.runStream(ctx, id, modelName, wire)
	})
}

func (c *Container) runStream(ctx context.Context, id, modelName string, wire []ollama.Message) {
	err := c.backend.ChatStream(ctx, modelName, wire, func(delta string) {
		c.mutate(func(s *State) bool {
			if c.streamID != id {
				return false
			}
			// s.Messages is private to the container; subscribers get copies.
			return model.AppendDelta(s.Messages, id, delta)
		})
	})

	c.mutate(func(s *State) bool {
		if c.streamID != id {
			return false
		}
		c.streamID = ""
		s.Messages, _ = model.FinalizeID(s.Messages, id)
		s.IsStreaming = false
		if err != nil && ctx.Err() == nil {
			s.ConnectionError = errorText(err, RequestFailed)
			log.Printf("CHAT_STREAM_FAILED | model=%s err=%v", modelName, err)
		}
		return true
	})
}

// NewChat cancels any stream and clears the conversation.
func (c *Container) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stream.cancel()
	c.streamID = ""

	s := c.state
	s.Messages = nil
	s.ConnectionError = ""
	s.IsStreaming = false
	c.commit(s)
}

// ClearError resets ConnectionError and ModelsError.
func (c *Container) ClearError() {
	c.mutate(func(s *State) bool {
		s.ConnectionError = ""
		s.ModelsError = ""
		return true
	})
}

// =============================================================================
// SERVER
// =============================================================================

// SetBaseURL persists a new server URL and reloads the model list from it.
func (c *Container) SetBaseURL(raw string) error {
	url, err := c.backend.SetBaseURL(raw)
	if err != nil {
		return err
	}
	c.mutate(func(s *State) bool {
		s.BaseURL = url
		return true
	})
	c.LoadModels()
	return nil
}

// ReloadBaseURL picks up a URL changed outside the container, e.g. by
// another process editing the preference file.
func (c *Container) ReloadBaseURL() {
	url, changed := c.backend.Reload()
	if !changed {
		return
	}
	c.mutate(func(s *State) bool {
		s.BaseURL = url
		return true
	})
	c.LoadModels()
}

// =============================================================================
// DOWNLOAD
// =============================================================================

// DownloadModel pulls name to the server, reporting progress in
// DownloadStatus. A new download cancels the previous one. The model list
// is reloaded once the pull succeeds.
func (c *Container) DownloadModel(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.pullGen++
	gen := c.pullGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.pull.replace(cancel)

	s := c.state
	s.Downloading = true
	s.DownloadStatus = "Downloading " + name + "..."
	c.commit(s)

	c.spawn(func() {
		defer cancel()
		err := c.backend.Pull(ctx, name, func(p ollama.PullProgress) {
			c.mutate(func(s *State) bool {
				if gen != c.pullGen {
					return false
				}
				s.DownloadStatus = progressText(p)
				return true
			})
		})

		ok := false
		c.mutate(func(s *State) bool {
			if gen != c.pullGen {
				return false
			}
			s.Downloading = false
			if err != nil {
				s.DownloadStatus = downloadFailedText + errorText(err, RequestFailed)
				log.Printf("MODEL_PULL_FAILED | model=%s err=%v", name, err)
			} else {
				s.DownloadStatus = DownloadComplete
				ok = true
				log.Printf("MODEL_PULLED | model=%s", name)
			}
			return true
		})
		if ok {
			c.LoadModels()
		}
	})
}

// CancelDownload stops the download in progress, if any.
func (c *Container) CancelDownload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.state.Downloading {
		return
	}
	c.pullGen++
	c.pull.cancel()

	s := c.state
	s.Downloading = false
	s.DownloadStatus = DownloadCancelled
	c.commit(s)
}

// =============================================================================
// SSH
// =============================================================================

// StartOllamaViaSSH runs the start command on the configured SSH host and
// reloads the model list when it succeeds.
func (c *Container) StartOllamaViaSSH() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	s := c.state
	if c.runner == nil {
		s.SSHStatus = sshRunnerMissing
		c.commit(s)
		return
	}

	c.sshGen++
	gen := c.sshGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.ssh.replace(cancel)

	s.SSHRunning = true
	s.SSHStatus = SSHStarting
	c.commit(s)

	runner, command := c.runner, c.startCommand
	c.spawn(func() {
		defer cancel()
		_, err := runner.Execute(ctx, command)

		ok := false
		c.mutate(func(s *State) bool {
			if gen != c.sshGen {
				return false
			}
			s.SSHRunning = false
			if err != nil {
				s.SSHStatus = errorText(err, RequestFailed)
				log.Printf("SSH_START_FAILED | err=%v", err)
			} else {
				s.SSHStatus = SSHStarted
				ok = true
				log.Printf("SSH_START_OK")
			}
			return true
		})
		if ok {
			c.LoadModels()
		}
	})
}
