// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution.
//
// This test file covers the command tree end to end against a fake Ollama
// server, plus the line-mode chat session and error mapping.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ollamamobile/ollama-mobile/internal/config"
	"github.com/ollamamobile/ollama-mobile/internal/model"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/remote"
	"github.com/ollamamobile/ollama-mobile/internal/repository"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// isolate points the data directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)
	t.Setenv(config.EnvDefaultURL, "")
	t.Setenv(config.EnvLogFile, "")
	return dir
}

// runCLI executes the command tree with args and returns everything written.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := &App{}
	defer app.Close()

	root := NewRootCommand(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decodeResponse(t *testing.T, out string, data interface{}) JSONResponse {
	t.Helper()
	var resp JSONResponse
	if data != nil {
		resp.Data = data
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return resp
}

// fakeOllama serves /api/tags with the given model names.
func fakeOllama(t *testing.T, names ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			entries := make([]string, len(names))
			for i, n := range names {
				entries[i] = fmt.Sprintf(`{"name":%q,"size":1300000000,"modified_at":"2024-10-01T12:00:00Z","details":{"parameter_size":"1.2B","family":"llama"}}`, n)
			}
			fmt.Fprintf(w, `{"models":[%s]}`, strings.Join(entries, ","))
		case "/":
			io.WriteString(w, "Ollama is running")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// VERSION
// =============================================================================

func TestVersion_JSON(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "version", "--json")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}

	var data VersionData
	resp := decodeResponse(t, out, &data)
	if !resp.Success || resp.Command != "version" {
		t.Errorf("response = %+v, want success for version", resp)
	}
	if data.Version != Version {
		t.Errorf("Version = %q, want %q", data.Version, Version)
	}
}

// =============================================================================
// URL
// =============================================================================

func TestURL_DefaultThenSet(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "", "url", "--json")
	if err != nil {
		t.Fatalf("url error = %v", err)
	}
	var data URLData
	decodeResponse(t, out, &data)
	if data.BaseURL != config.DefaultBaseURL || !data.Default {
		t.Errorf("data = %+v, want default %s", data, config.DefaultBaseURL)
	}

	out, err = runCLI(t, "", "url", "  http://10.0.0.2:11434//  ")
	if err != nil {
		t.Fatalf("url set error = %v", err)
	}
	if !strings.Contains(out, "http://10.0.0.2:11434") {
		t.Errorf("output = %q, want the normalized URL", out)
	}

	out, err = runCLI(t, "", "url", "--json")
	if err != nil {
		t.Fatalf("url error = %v", err)
	}
	data = URLData{}
	decodeResponse(t, out, &data)
	if data.BaseURL != "http://10.0.0.2:11434" || data.Default {
		t.Errorf("data = %+v, want saved URL", data)
	}
}

func TestURL_BlankIsUsageError(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "url", "   ")
	if err == nil {
		t.Fatal("expected an error for a blank URL")
	}
	if code := GetExitCode(err); code != ExitUsageError {
		t.Errorf("exit code = %d, want %d", code, ExitUsageError)
	}
}

func TestURL_Check(t *testing.T) {
	isolate(t)
	srv := fakeOllama(t)

	if _, err := runCLI(t, "", "url", srv.URL); err != nil {
		t.Fatalf("url set error = %v", err)
	}
	out, err := runCLI(t, "", "url", "--check")
	if err != nil {
		t.Fatalf("url --check error = %v", err)
	}
	if !strings.Contains(out, "reachable") {
		t.Errorf("output = %q, want reachable", out)
	}
}

// =============================================================================
// MODELS
// =============================================================================

func TestModelsList_Table(t *testing.T) {
	isolate(t)
	srv := fakeOllama(t, "llama3.2:1b", "qwen2.5:0.5b")
	t.Setenv(config.EnvDefaultURL, srv.URL)

	out, err := runCLI(t, "", "models", "list")
	if err != nil {
		t.Fatalf("models list error = %v", err)
	}
	for _, want := range []string{"NAME", "llama3.2:1b", "qwen2.5:0.5b", "1.2B", "llama", "2024-10-0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestModelsList_JSON(t *testing.T) {
	isolate(t)
	srv := fakeOllama(t, "llama3.2:1b")
	t.Setenv(config.EnvDefaultURL, srv.URL)

	out, err := runCLI(t, "", "models", "ls", "--json")
	if err != nil {
		t.Fatalf("models ls error = %v", err)
	}
	var models []map[string]interface{}
	resp := decodeResponse(t, out, &models)
	if !resp.Success {
		t.Fatalf("response = %+v, want success", resp)
	}
	if len(models) != 1 || models[0]["name"] != "llama3.2:1b" {
		t.Errorf("models = %v, want one llama3.2:1b entry", models)
	}
}

func TestModelsList_Empty(t *testing.T) {
	var buf bytes.Buffer
	printModels(&buf, nil)
	if !strings.Contains(buf.String(), "No models installed") {
		t.Errorf("output = %q, want empty hint", buf.String())
	}
}

func TestPullPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := &pullPrinter{out: &buf, plain: true}

	p.update(ollama.PullProgress{Status: "pulling manifest"})
	p.update(ollama.PullProgress{Status: "pulling manifest"})
	p.update(ollama.PullProgress{Status: "downloading", Total: 100, Completed: 40})
	p.update(ollama.PullProgress{Status: "success"})
	p.finish()

	want := "pulling manifest\ndownloading\nsuccess\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPullPrinter_QuietInJSONMode(t *testing.T) {
	var buf bytes.Buffer
	p := &pullPrinter{out: &buf, quiet: true}
	p.update(ollama.PullProgress{Status: "downloading", Total: 10, Completed: 5})
	p.finish()

	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing", buf.String())
	}
}

// =============================================================================
// SSH
// =============================================================================

func TestSSH_SetAndShow(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "hunter2\n", "ssh", "set", "192.168.1.5", "u0_a123")
	if err != nil {
		t.Fatalf("ssh set error = %v", err)
	}
	if !strings.Contains(out, "u0_a123@192.168.1.5") {
		t.Errorf("output = %q, want saved login", out)
	}

	out, err = runCLI(t, "", "ssh", "show", "--json")
	if err != nil {
		t.Fatalf("ssh show error = %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Error("ssh show printed the password")
	}
	var data SSHData
	decodeResponse(t, out, &data)
	if data.Hostname != "192.168.1.5" || data.Username != "u0_a123" || !data.HasPassword {
		t.Errorf("data = %+v", data)
	}
}

func TestSSH_SetWithoutPassword(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "ssh", "set", "192.168.1.5", "u0_a123")
	var ttyErr *TTYRequiredError
	if !errors.As(err, &ttyErr) {
		t.Fatalf("error = %v, want TTYRequiredError", err)
	}
}

func TestSSH_ShowWithoutLogin(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "ssh", "show")
	if !errors.Is(err, remote.ErrNoCredentials) {
		t.Fatalf("error = %v, want ErrNoCredentials", err)
	}
	if code := GetExitCode(err); code != ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, ExitConfigError)
	}
}

func TestSSH_ExecWithoutLogin(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "ssh", "exec", "uptime")
	if !errors.Is(err, remote.ErrNoCredentials) {
		t.Errorf("error = %v, want ErrNoCredentials", err)
	}
}

func TestPrintRemoteOutput(t *testing.T) {
	var buf bytes.Buffer
	printRemoteOutput(&buf, "ssh exec", "up 3 days")
	if buf.String() != "up 3 days\n" {
		t.Errorf("output = %q", buf.String())
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigShow_Key(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvDefaultURL, "http://phone.local:11434")

	out, err := runCLI(t, "", "config", "show", "server.default_url")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.TrimSpace(out) != "http://phone.local:11434" {
		t.Errorf("output = %q", out)
	}
}

func TestConfigShow_UnknownKey(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "", "config", "show", "server.nope")
	if code := GetExitCode(err); code != ExitUsageError {
		t.Errorf("exit code = %d, want %d (err = %v)", code, ExitUsageError, err)
	}
}

func TestConfigPath(t *testing.T) {
	dir := isolate(t)

	out, err := runCLI(t, "", "config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if !strings.Contains(out, dir) || !strings.Contains(out, "config.toml") {
		t.Errorf("output = %q, want paths under %s", out, dir)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"validation", &ValidationError{Field: "model"}, ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "chat"}, ExitUsageError},
		{"empty url", fmt.Errorf("set: %w", repository.ErrEmptyBaseURL), ExitUsageError},
		{"no credentials", remote.ErrNoCredentials, ExitConfigError},
		{"ssh timeout", NewCommandError("ssh", "exec", "uptime", remote.ErrCommandTimeout), ExitTimeoutError},
		{"interrupted", NewCommandError("models", "pull", "llama3", context.Canceled), ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &ValidationError{Field: "model", Reason: "not installed"}, true)

	var resp struct {
		Success bool              `json:"success"`
		Error   string            `json:"error"`
		Detail  map[string]string `json:"detail"`
	}
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if resp.Success || resp.Detail["error_type"] != "validation_error" || resp.Detail["field"] != "model" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetExitCode_CancelledRequest(t *testing.T) {
	srv := fakeOllama(t, "llama3")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ollama.NewClient(srv.URL).ListModels(ctx)
	if !ollama.IsCanceled(err) {
		t.Fatalf("err = %v, want a cancelled request", err)
	}
	if code := GetExitCode(NewCommandError("models", "list", "", err)); code != ExitInterrupted {
		t.Errorf("exit code = %d, want %d", code, ExitInterrupted)
	}
}

func TestDisplayError_JSONCarriesHTTPStatus(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	t.Setenv(config.EnvDefaultURL, srv.URL)

	_, err := runCLI(t, "", "models", "list", "--json")
	if err == nil {
		t.Fatal("expected an error from a 503 server")
	}

	var buf bytes.Buffer
	DisplayError(&buf, err, true)
	var resp struct {
		Detail map[string]string `json:"detail"`
	}
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if resp.Detail["http_status"] != "503" || resp.Detail["error_type"] != "command_error" {
		t.Errorf("detail = %v", resp.Detail)
	}
}

func TestDisplayError_Hint(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, remote.ErrNoCredentials, false)
	if !strings.Contains(buf.String(), "[ERROR]") || !strings.Contains(buf.String(), "ssh set") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestReadSecret_FromReader(t *testing.T) {
	got, err := readSecret(strings.NewReader("s3cret\r\nignored\n"), io.Discard, "Password: ")
	if err != nil || got != "s3cret" {
		t.Errorf("readSecret() = %q, %v", got, err)
	}
}

// =============================================================================
// LINE-MODE CHAT
// =============================================================================

type fakeStreamer struct {
	models []ollama.ModelInfo
	chunks []ollama.StreamChunk
	sent   []ollama.Message
}

func (f *fakeStreamer) ListModels(context.Context) ([]ollama.ModelInfo, error) {
	return f.models, nil
}

func (f *fakeStreamer) ChatStreamChan(_ context.Context, _ string, messages []ollama.Message) <-chan ollama.StreamChunk {
	f.sent = messages
	ch := make(chan ollama.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestChatSession_ResolveModel(t *testing.T) {
	client := &fakeStreamer{models: []ollama.ModelInfo{{Name: "llama3.2:1b"}, {Name: "qwen2.5:0.5b"}}}
	s := &chatSession{client: client, out: io.Discard}
	ctx := context.Background()

	if err := s.resolveModel(ctx, ""); err != nil || s.model != "llama3.2:1b" {
		t.Errorf("default: model = %q, err = %v", s.model, err)
	}
	if err := s.resolveModel(ctx, "qwen2.5:0.5b"); err != nil || s.model != "qwen2.5:0.5b" {
		t.Errorf("requested: model = %q, err = %v", s.model, err)
	}

	var validationErr *ValidationError
	if err := s.resolveModel(ctx, "mistral"); !errors.As(err, &validationErr) {
		t.Errorf("missing model: err = %v, want ValidationError", err)
	}

	empty := &chatSession{client: &fakeStreamer{}, out: io.Discard}
	if err := empty.resolveModel(ctx, ""); !errors.As(err, &validationErr) {
		t.Errorf("no models: err = %v, want ValidationError", err)
	}
}

func TestChatSession_Send(t *testing.T) {
	client := &fakeStreamer{chunks: []ollama.StreamChunk{
		{Content: "Hel"}, {Content: "lo"}, {Done: true},
	}}
	var out bytes.Buffer
	s := &chatSession{client: client, out: &out, model: "llama3.2:1b"}

	if err := s.send(context.Background(), "hi"); err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if out.String() != "Hello\n" {
		t.Errorf("output = %q, want %q", out.String(), "Hello\n")
	}
	if len(client.sent) != 1 || client.sent[0].Role != "user" || client.sent[0].Content != "hi" {
		t.Errorf("sent = %+v", client.sent)
	}
	if len(s.history) != 2 || s.history[1].Content != "Hello" {
		t.Errorf("history = %+v", s.history)
	}

	// The next turn carries the whole conversation.
	client.chunks = []ollama.StreamChunk{{Content: "ok"}}
	if err := s.send(context.Background(), "again"); err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if len(client.sent) != 3 {
		t.Errorf("sent %d messages, want 3", len(client.sent))
	}
}

func TestChatSession_SendError(t *testing.T) {
	boom := errors.New("connection reset")
	client := &fakeStreamer{chunks: []ollama.StreamChunk{{Content: "par"}, {Error: boom, Done: true}}}
	s := &chatSession{client: client, out: io.Discard, model: "m"}

	if err := s.send(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("send() error = %v, want %v", err, boom)
	}
}

func TestChatSession_Commands(t *testing.T) {
	client := &fakeStreamer{models: []ollama.ModelInfo{{Name: "a"}, {Name: "b"}}}
	var out bytes.Buffer
	s := &chatSession{client: client, out: &out, model: "a"}
	ctx := context.Background()

	s.history = []model.Message{model.NewUserMessage("x")}
	if s.handleCommand(ctx, "/clear") || s.history != nil {
		t.Error("/clear should empty the history and keep going")
	}
	s.handleCommand(ctx, "/model b")
	if s.model != "b" {
		t.Errorf("model = %q, want b", s.model)
	}
	out.Reset()
	s.handleCommand(ctx, "/models")
	if !strings.Contains(out.String(), "* b") {
		t.Errorf("/models output = %q, want current marker", out.String())
	}
	out.Reset()
	s.handleCommand(ctx, "/bogus")
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("output = %q", out.String())
	}
	if !s.handleCommand(ctx, "/quit") {
		t.Error("/quit should end the session")
	}
}
