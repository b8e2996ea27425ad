// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollamamobile/ollama-mobile/internal/model"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/repository"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu        sync.Mutex
	url       string
	stored    string
	models    []ollama.ModelInfo
	listErr   error
	listCalls atomic.Int32
	sent      [][]ollama.Message

	chat func(ctx context.Context, onDelta func(string)) error
	pull func(ctx context.Context, name string, onProgress func(ollama.PullProgress)) error
}

func newFake(names ...string) *fakeBackend {
	f := &fakeBackend{url: "http://127.0.0.1:11434"}
	for _, n := range names {
		f.models = append(f.models, ollama.ModelInfo{Name: n})
	}
	return f
}

func (f *fakeBackend) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakeBackend) SetBaseURL(raw string) (string, error) {
	url, err := repository.NormalizeBaseURL(raw)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	return url, nil
}

func (f *fakeBackend) Reload() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == "" || f.stored == f.url {
		return f.url, false
	}
	f.url = f.stored
	return f.url, true
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]ollama.ModelInfo, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]ollama.ModelInfo(nil), f.models...), nil
}

func (f *fakeBackend) ChatStream(ctx context.Context, _ string, messages []ollama.Message, onDelta func(string)) error {
	f.mu.Lock()
	f.sent = append(f.sent, messages)
	chat := f.chat
	f.mu.Unlock()
	if chat == nil {
		return nil
	}
	return chat(ctx, onDelta)
}

func (f *fakeBackend) Pull(ctx context.Context, name string, onProgress func(ollama.PullProgress)) error {
	if f.pull == nil {
		return nil
	}
	return f.pull(ctx, name, onProgress)
}

func (f *fakeBackend) sentAt(i int) []ollama.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[i]
}

type fakeRunner struct {
	out      string
	err      error
	commands chan string
}

func (r *fakeRunner) Execute(_ context.Context, command string) (string, error) {
	if r.commands != nil {
		r.commands <- command
	}
	return r.out, r.err
}

func newContainer(t *testing.T, b Backend, opts ...Option) *Container {
	t.Helper()
	c := New(b, opts...)
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, c *Container, cond func(State) bool) State {
	t.Helper()
	var last State
	require.Eventually(t, func() bool {
		last = c.State()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func modelsLoaded(s State) bool { return !s.LoadingModels }

func streamingCount(msgs []model.Message) int {
	n := 0
	for _, m := range msgs {
		if m.IsStreaming {
			n++
		}
	}
	return n
}

// =============================================================================
// MODELS
// =============================================================================

func TestNew_LoadsModelsAndSelectsFirst(t *testing.T) {
	b := newFake("llama3", "mistral")
	c := newContainer(t, b)

	s := waitFor(t, c, func(s State) bool { return len(s.Models) == 2 })
	assert.Equal(t, "llama3", s.SelectedModel)
	assert.Equal(t, b.url, s.BaseURL)
	assert.False(t, s.LoadingModels)
	assert.Empty(t, s.ModelsError)
}

func TestLoadModels_KeepsExistingSelection(t *testing.T) {
	b := newFake("llama3", "mistral")
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return len(s.Models) == 2 })

	c.SetSelectedModel("mistral")
	c.LoadModels()
	waitFor(t, c, func(s State) bool { return b.listCalls.Load() == 2 && modelsLoaded(s) })
	assert.Equal(t, "mistral", c.State().SelectedModel)
}

func TestLoadModels_FailureSetsHint(t *testing.T) {
	b := newFake()
	b.listErr = errors.New("cannot connect to Ollama at http://127.0.0.1:11434")
	c := newContainer(t, b)

	s := waitFor(t, c, func(s State) bool { return s.ModelsError != "" })
	assert.Equal(t, b.listErr.Error(), s.ModelsError)
	assert.Equal(t, ConnectionHint, s.ConnectionError)
	assert.False(t, s.LoadingModels)
	assert.Empty(t, s.SelectedModel)
}

func TestLoadModels_EmptyErrorTextUsesFallback(t *testing.T) {
	b := newFake()
	b.listErr = errors.New("")
	c := newContainer(t, b)

	s := waitFor(t, c, func(s State) bool { return s.ModelsError != "" })
	assert.Equal(t, ModelsLoadFailed, s.ModelsError)
}

func TestClearError_OnlyResetsErrors(t *testing.T) {
	b := newFake()
	b.listErr = errors.New("boom")
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.ModelsError != "" })

	c.SetSelectedModel("x")
	c.ClearError()

	s := c.State()
	assert.Empty(t, s.ModelsError)
	assert.Empty(t, s.ConnectionError)
	assert.Equal(t, "x", s.SelectedModel)
}

// =============================================================================
// CHAT
// =============================================================================

func TestSendMessage_IgnoredWhenBlankOrNoModel(t *testing.T) {
	b := newFake()
	c := newContainer(t, b)
	waitFor(t, c, modelsLoaded)

	c.SendMessage("hello")
	assert.Empty(t, c.State().Messages, "no model selected")

	c.SetSelectedModel("llama3")
	c.SendMessage("   \n\t")
	assert.Empty(t, c.State().Messages, "blank input")
}

func TestSendMessage_StreamsReply(t *testing.T) {
	b := newFake("llama3")
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		onDelta("Hel")
		onDelta("lo")
		return nil
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	c.SendMessage("  hi  ")
	s := waitFor(t, c, func(s State) bool { return len(s.Messages) == 2 && !s.IsStreaming })

	assert.Equal(t, model.RoleUser, s.Messages[0].Role)
	assert.Equal(t, "hi", s.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, s.Messages[1].Role)
	assert.Equal(t, "Hello", s.Messages[1].Content)
	assert.False(t, s.Messages[1].IsStreaming)
	assert.Empty(t, s.ConnectionError)

	sent := b.sentAt(0)
	require.Len(t, sent, 1, "placeholder is not sent")
	assert.Equal(t, ollama.Message{Role: "user", Content: "hi"}, sent[0])
}

func TestSendMessage_EarlierSnapshotsKeepTheirText(t *testing.T) {
	release := make(chan struct{})
	b := newFake("llama3")
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		onDelta("one")
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		onDelta(" two")
		return nil
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	states, unsubscribe := c.Subscribe()
	defer unsubscribe()
	<-states

	c.SendMessage("hi")
	early := waitFor(t, c, func(s State) bool {
		return len(s.Messages) == 2 && s.Messages[1].Content == "one"
	})
	close(release)
	waitFor(t, c, func(s State) bool { return !s.IsStreaming })

	assert.Equal(t, "one", early.Messages[1].Content)
	assert.True(t, early.Messages[1].IsStreaming)
	for {
		select {
		case s := <-states:
			if len(s.Messages) == 2 && !s.IsStreaming {
				assert.Equal(t, "one two", s.Messages[1].Content)
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("final state not delivered")
		}
	}
}

func TestSendMessage_SendsFullHistory(t *testing.T) {
	b := newFake("llama3")
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		onDelta("ok")
		return nil
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	c.SendMessage("one")
	waitFor(t, c, func(s State) bool { return len(s.Messages) == 2 && !s.IsStreaming })
	c.SendMessage("two")
	waitFor(t, c, func(s State) bool { return len(s.Messages) == 4 && !s.IsStreaming })

	sent := b.sentAt(1)
	require.Len(t, sent, 3)
	assert.Equal(t, "one", sent[0].Content)
	assert.Equal(t, "ok", sent[1].Content)
	assert.Equal(t, "two", sent[2].Content)
}

func TestSendMessage_SupersedesPreviousStream(t *testing.T) {
	b := newFake("llama3")
	started := make(chan struct{})
	firstCancelled := make(chan struct{})
	var calls atomic.Int32

	b.chat = func(ctx context.Context, onDelta func(string)) error {
		if calls.Add(1) == 1 {
			onDelta("a")
			close(started)
			<-ctx.Done()
			close(firstCancelled)
			onDelta("late")
			return ctx.Err()
		}
		onDelta("b")
		return nil
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	c.SendMessage("first")
	<-started
	waitFor(t, c, func(s State) bool { return len(s.Messages) == 2 && s.Messages[1].Content == "a" })

	c.SendMessage("second")

	select {
	case <-firstCancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("first stream was not cancelled")
	}

	s := waitFor(t, c, func(s State) bool { return len(s.Messages) == 4 && !s.IsStreaming })
	assert.Equal(t, "a", s.Messages[1].Content, "late delta from superseded stream ignored")
	assert.False(t, s.Messages[1].IsStreaming)
	assert.Equal(t, "b", s.Messages[3].Content)
	assert.Zero(t, streamingCount(s.Messages))
	assert.Empty(t, s.ConnectionError, "cancellation is not an error")
}

func TestSendMessage_AtMostOneStreamingMessage(t *testing.T) {
	b := newFake("llama3")
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		<-ctx.Done()
		return ctx.Err()
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	for i := 0; i < 5; i++ {
		c.SendMessage("msg")
		assert.LessOrEqual(t, streamingCount(c.State().Messages), 1)
	}
	s := c.State()
	assert.Len(t, s.Messages, 10)
	assert.Equal(t, 1, streamingCount(s.Messages))
	assert.True(t, s.IsStreaming)
}

func TestSendMessage_FailureRecordsError(t *testing.T) {
	b := newFake("llama3")
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		onDelta("part")
		return &ollama.ClientError{Type: ollama.ErrTypeHTTPStatus, Message: "HTTP 500: Internal Server Error", StatusCode: 500}
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	c.SendMessage("hi")
	s := waitFor(t, c, func(s State) bool { return s.ConnectionError != "" })

	assert.Contains(t, s.ConnectionError, "HTTP 500")
	assert.False(t, s.IsStreaming)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "part", s.Messages[1].Content)
	assert.False(t, s.Messages[1].IsStreaming)
}

func TestNewChat_CancelsAndClears(t *testing.T) {
	b := newFake("llama3")
	cancelled := make(chan struct{})
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		<-ctx.Done()
		close(cancelled)
		onDelta("late")
		return ctx.Err()
	}
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	c.SendMessage("hi")
	c.NewChat()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not cancelled")
	}

	s := c.State()
	assert.Empty(t, s.Messages)
	assert.False(t, s.IsStreaming)
	assert.Empty(t, s.ConnectionError)
	assert.Equal(t, "llama3", s.SelectedModel)

	// The cancelled stream's completion must not resurrect anything.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.State().Messages)
}

// =============================================================================
// SERVER URL
// =============================================================================

func TestSetBaseURL(t *testing.T) {
	b := newFake("llama3")
	c := newContainer(t, b)
	waitFor(t, c, modelsLoaded)
	before := b.listCalls.Load()

	require.NoError(t, c.SetBaseURL(" http://10.0.0.5:11434/ "))
	assert.Equal(t, "http://10.0.0.5:11434", c.State().BaseURL)
	waitFor(t, c, func(s State) bool { return b.listCalls.Load() > before && modelsLoaded(s) })

	err := c.SetBaseURL("  ")
	assert.ErrorIs(t, err, repository.ErrEmptyBaseURL)
	assert.Equal(t, "http://10.0.0.5:11434", c.State().BaseURL)
}

func TestReloadBaseURL(t *testing.T) {
	b := newFake("llama3")
	c := newContainer(t, b)
	waitFor(t, c, modelsLoaded)

	c.ReloadBaseURL()
	assert.Equal(t, int32(1), b.listCalls.Load(), "unchanged URL does not reload")

	b.mu.Lock()
	b.stored = "http://edited:11434"
	b.mu.Unlock()

	c.ReloadBaseURL()
	assert.Equal(t, "http://edited:11434", c.State().BaseURL)
	waitFor(t, c, func(s State) bool { return b.listCalls.Load() == 2 && modelsLoaded(s) })
}

// =============================================================================
// DOWNLOAD
// =============================================================================

func TestDownloadModel_ProgressAndReload(t *testing.T) {
	b := newFake("llama3")
	var statuses []string
	var mu sync.Mutex
	c := newContainer(t, b)
	waitFor(t, c, modelsLoaded)

	states, unsubscribe := c.Subscribe()
	defer unsubscribe()
	go func() {
		for s := range states {
			mu.Lock()
			statuses = append(statuses, s.DownloadStatus)
			mu.Unlock()
		}
	}()

	b.pull = func(ctx context.Context, name string, onProgress func(ollama.PullProgress)) error {
		assert.Equal(t, "phi3", name)
		onProgress(ollama.PullProgress{Status: "pulling manifest"})
		onProgress(ollama.PullProgress{Status: "pulling abc", Total: 200, Completed: 100})
		b.mu.Lock()
		b.models = append(b.models, ollama.ModelInfo{Name: "phi3"})
		b.mu.Unlock()
		return nil
	}

	c.DownloadModel("  phi3 ")
	s := waitFor(t, c, func(s State) bool { return s.DownloadStatus == DownloadComplete })
	assert.False(t, s.Downloading)
	waitFor(t, c, func(s State) bool { return s.HasModel("phi3") })

	c.DownloadModel("   ")
	assert.Equal(t, DownloadComplete, c.State().DownloadStatus, "blank name ignored")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) > 0 && statuses[len(statuses)-1] == DownloadComplete
	}, time.Second, 5*time.Millisecond)
}

func TestDownloadModel_StatusStrings(t *testing.T) {
	assert.Equal(t, "pulling abc 50%", progressText(ollama.PullProgress{Status: "pulling abc", Total: 200, Completed: 100}))
	assert.Equal(t, "verifying sha256 digest", progressText(ollama.PullProgress{Status: "verifying sha256 digest"}))
}

func TestDownloadModel_Failure(t *testing.T) {
	b := newFake("llama3")
	b.pull = func(context.Context, string, func(ollama.PullProgress)) error {
		return errors.New("pull model manifest: file does not exist")
	}
	c := newContainer(t, b)
	waitFor(t, c, modelsLoaded)

	c.DownloadModel("nope")
	s := waitFor(t, c, func(s State) bool { return strings.HasPrefix(s.DownloadStatus, "Download failed: ") })
	assert.Equal(t, "Download failed: pull model manifest: file does not exist", s.DownloadStatus)
	assert.False(t, s.Downloading)
}

func TestDownloadModel_Cancel(t *testing.T) {
	b := newFake("llama3")
	cancelled := make(chan struct{})
	b.pull = func(ctx context.Context, _ string, _ func(ollama.PullProgress)) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}
	c := newContainer(t, b)
	waitFor(t, c, modelsLoaded)

	c.DownloadModel("big")
	assert.Equal(t, "Downloading big...", c.State().DownloadStatus)
	assert.True(t, c.State().Downloading)

	c.CancelDownload()
	<-cancelled
	time.Sleep(20 * time.Millisecond)
	s := c.State()
	assert.Equal(t, DownloadCancelled, s.DownloadStatus)
	assert.False(t, s.Downloading)
}

// =============================================================================
// SSH
// =============================================================================

func TestStartOllamaViaSSH_Success(t *testing.T) {
	b := newFake("llama3")
	r := &fakeRunner{commands: make(chan string, 1)}
	c := newContainer(t, b, WithRunner(r), WithStartCommand("ollama serve &"))
	waitFor(t, c, modelsLoaded)

	c.StartOllamaViaSSH()
	assert.Equal(t, "ollama serve &", <-r.commands)

	s := waitFor(t, c, func(s State) bool { return s.SSHStatus == SSHStarted })
	assert.False(t, s.SSHRunning)
	waitFor(t, c, func(s State) bool { return b.listCalls.Load() == 2 && modelsLoaded(s) })
}

func TestStartOllamaViaSSH_Failure(t *testing.T) {
	b := newFake("llama3")
	r := &fakeRunner{err: errors.New("SSH credentials not configured.")}
	c := newContainer(t, b, WithRunner(r))
	waitFor(t, c, modelsLoaded)

	c.StartOllamaViaSSH()
	s := waitFor(t, c, func(s State) bool { return !s.SSHRunning && s.SSHStatus != SSHStarting })
	assert.Equal(t, "SSH credentials not configured.", s.SSHStatus)
	assert.Equal(t, int32(1), b.listCalls.Load(), "no reload on failure")
}

func TestStartOllamaViaSSH_MultiLineErrorFitsStatusLine(t *testing.T) {
	b := newFake("llama3")
	r := &fakeRunner{err: errors.New("command failed with exit code 127:\nbash: ollama:\n  command not found\n")}
	c := newContainer(t, b, WithRunner(r))
	waitFor(t, c, modelsLoaded)

	c.StartOllamaViaSSH()
	s := waitFor(t, c, func(s State) bool { return !s.SSHRunning && s.SSHStatus != SSHStarting })
	assert.Equal(t, "command failed with exit code 127: bash: ollama: command not found", s.SSHStatus)
}

func TestStartOllamaViaSSH_NoRunner(t *testing.T) {
	c := newContainer(t, newFake())
	c.StartOllamaViaSSH()
	assert.Equal(t, sshRunnerMissing, c.State().SSHStatus)
}

// =============================================================================
// OBSERVATION
// =============================================================================

func TestSubscribe_DeliversCurrentAndLatest(t *testing.T) {
	b := newFake("llama3")
	c := newContainer(t, b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	states, unsubscribe := c.Subscribe()
	first := <-states
	assert.Equal(t, "llama3", first.SelectedModel)

	c.SetSelectedModel("a")
	c.SetSelectedModel("b")
	c.SetSelectedModel("c")
	latest := <-states
	assert.Equal(t, "c", latest.SelectedModel, "intermediate states dropped")

	unsubscribe()
	unsubscribe()
	_, open := <-states
	assert.False(t, open)
}

func TestSnapshotsAreIndependent(t *testing.T) {
	b := newFake("llama3")
	c := newContainer(t, b)
	s := waitFor(t, c, func(s State) bool { return len(s.Models) == 1 })

	s.Models[0].Name = "mutated"
	assert.Equal(t, "llama3", c.State().Models[0].Name)
}

func TestClose_StopsEverything(t *testing.T) {
	b := newFake("llama3")
	b.chat = func(ctx context.Context, onDelta func(string)) error {
		<-ctx.Done()
		return ctx.Err()
	}
	c := New(b)
	waitFor(t, c, func(s State) bool { return s.SelectedModel != "" })

	states, _ := c.Subscribe()
	<-states
	c.SendMessage("hi")

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	for range states {
	}
	c.Close()
	c.SendMessage("after close")
	assert.Len(t, c.State().Messages, 2)
}
