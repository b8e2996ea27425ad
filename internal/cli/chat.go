// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for terminals where the full-screen UI does not fit.
//
// Examples:
//   ollama-mobile chat                    Chat with the first installed model
//   ollama-mobile chat -m llama3.2:1b     Use a specific model
//
// Interactive Commands (during chat):
//   /help               Show available commands
//   /clear              Clear conversation history
//   /model [name]       Show or switch model
//   /models             List installed models
//   /quit               Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/ollamamobile/ollama-mobile/internal/model"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/util"
)

const historyFileName = "chat_history"

func newChatCommand(app *App) *cobra.Command {
	var modelName string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in line mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(commandContext(cmd), app, modelName, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model to chat with (default: first installed)")
	return cmd
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides line editing and persistent input history.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(dataDir string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &lineReader{line: line, historyFile: filepath.Join(dataDir, historyFileName)}
	if f, err := os.Open(r.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history (owner-only) and restores the terminal.
func (r *lineReader) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatStreamer is the part of the repository a line-mode session uses.
type chatStreamer interface {
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
	ChatStreamChan(ctx context.Context, model string, messages []ollama.Message) <-chan ollama.StreamChunk
}

// chatSession holds the conversation of one line-mode chat.
type chatSession struct {
	client  chatStreamer
	out     io.Writer
	model   string
	history []model.Message
}

// resolveModel picks the requested model, or the first installed one.
func (s *chatSession) resolveModel(ctx context.Context, requested string) error {
	models, err := s.client.ListModels(ctx)
	if err != nil {
		return NewCommandError("chat", "start", "cannot list models", err)
	}
	if requested != "" {
		for _, m := range models {
			if m.Name == requested {
				s.model = requested
				return nil
			}
		}
		return &ValidationError{
			Field:   "model",
			Value:   requested,
			Reason:  "not installed",
			Example: "ollama-mobile models pull " + requested,
		}
	}
	if len(models) == 0 {
		return &ValidationError{
			Field:   "model",
			Reason:  "no models installed",
			Example: "ollama-mobile models pull llama3.2:1b",
		}
	}
	s.model = models[0].Name
	return nil
}

// send streams a reply to text, printing deltas as they arrive. Cancelling
// ctx abandons the reply; what arrived so far stays in the history.
func (s *chatSession) send(ctx context.Context, text string) error {
	s.history = model.Append(s.history, model.NewUserMessage(text))
	wire := model.ToWire(s.history)

	var reply strings.Builder
	var streamErr error
	for chunk := range s.client.ChatStreamChan(ctx, s.model, wire) {
		if chunk.Error != nil {
			streamErr = chunk.Error
			continue
		}
		reply.WriteString(chunk.Content)
		fmt.Fprint(s.out, chunk.Content)
	}
	fmt.Fprintln(s.out)

	s.history = model.Append(s.history, model.NewMessage(model.RoleAssistant, reply.String()))
	if ctx.Err() != nil {
		fmt.Fprintln(s.out, DimStyle.Render("(cancelled)"))
		return nil
	}
	return streamErr
}

// handleCommand runs a slash command. quit reports that the session should end.
func (s *chatSession) handleCommand(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true

	case "/clear", "/c":
		s.history = nil
		fmt.Fprintln(s.out, DimStyle.Render("Conversation cleared."))

	case "/model", "/m":
		if len(fields) < 2 {
			fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Model"), ValueStyle.Render(s.model))
			return false
		}
		if err := s.resolveModel(ctx, fields[1]); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
			return false
		}
		fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Model"), SuccessStyle.Render(s.model))

	case "/models":
		models, err := s.client.ListModels(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
			return false
		}
		for _, m := range models {
			marker := "  "
			if m.Name == s.model {
				marker = "* "
			}
			fmt.Fprintf(s.out, "%s%s %s\n", marker, m.Name, DimStyle.Render(util.FormatBytes(m.Size)))
		}

	case "/help", "/h":
		printChatHelp(s.out)

	default:
		fmt.Fprintf(s.out, "%s unknown command %s (try /help)\n", WarningStyle.Render("[WARN]"), fields[0])
	}
	return false
}

func printChatHelp(w io.Writer) {
	fmt.Fprintln(w, TitleStyle.Render("Commands"))
	for _, c := range [][2]string{
		{"/model [name]", "show or switch model"},
		{"/models", "list installed models"},
		{"/clear", "start a new conversation"},
		{"/quit", "exit (or Ctrl+D)"},
		{"Ctrl+C", "stop the current reply"},
	} {
		fmt.Fprintf(w, "  %s %s\n", RenderLabel(c[0]), DimStyle.Render(c[1]))
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func runChat(ctx context.Context, app *App, requested string, out io.Writer) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: "chat"}
	}

	repo := app.repository(app.preferences())
	session := &chatSession{client: repo, out: out}
	if err := session.resolveModel(ctx, requested); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s %s\n", TitleStyle.Render("ollama-mobile"),
		ValueStyle.Render(session.model), DimStyle.Render("@ "+repo.BaseURL()))
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))

	input := newLineReader(app.DataDir)
	defer input.Close()

	for {
		line, err := input.ReadInput(PromptStyle.Render("> "))
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			// io.EOF on Ctrl+D
			fmt.Fprintln(out)
			return nil
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			if session.handleCommand(ctx, text) {
				return nil
			}
			continue
		}

		streamCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err = session.send(streamCtx, text)
		stop()
		if err != nil {
			log.Printf("CHAT_FAILED | model=%s error=%v", session.model, err)
			DisplayError(out, err, false)
		}
	}
}
