// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model listing and download.
//
// Examples:
//   ollama-mobile models list
//   ollama-mobile models pull llama3.2:1b

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/ui/styles"
	"github.com/ollamamobile/ollama-mobile/internal/util"
)

func newModelsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"model"},
		Short:   "List or download models",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := app.repository(app.preferences())
			models, err := repo.ListModels(commandContext(cmd))
			if err != nil {
				return NewCommandError("models", "list", "cannot reach "+repo.BaseURL(), err)
			}
			return app.output(cmd.OutOrStdout(), "models list", models, func() {
				printModels(cmd.OutOrStdout(), models)
			})
		},
	}

	pull := &cobra.Command{
		Use:   "pull <name>",
		Short: "Download a model to the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return &ValidationError{Field: "model name", Reason: "must not be empty", Example: "llama3.2:1b"}
			}
			repo := app.repository(app.preferences())
			out := cmd.OutOrStdout()

			// Ctrl+C stops the download; the exit code reports the interrupt.
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()

			progress := &pullPrinter{out: out, plain: !IsStdoutTTY(), quiet: app.JSON}
			err := repo.Pull(ctx, name, progress.update)
			progress.finish()
			if err != nil {
				return NewCommandError("models", "pull", name, err)
			}
			return app.output(out, "models pull", map[string]string{"model": name, "status": "success"}, func() {
				fmt.Fprintf(out, "%s Downloaded %s\n", RenderStatus("ok"), name)
			})
		},
	}

	cmd.AddCommand(list, pull)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printModels writes a table of models, widest name first column.
func printModels(w io.Writer, models []ollama.ModelInfo) {
	if len(models) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No models installed. Try: ollama-mobile models pull llama3.2:1b"))
		return
	}

	nameWidth := len("NAME")
	for _, m := range models {
		if n := util.StringWidth(m.Name); n > nameWidth {
			nameWidth = n
		}
	}

	header := fmt.Sprintf("%-*s  %9s  %-8s  %-10s  %s", nameWidth, "NAME", "SIZE", "PARAMS", "FAMILY", "MODIFIED")
	fmt.Fprintln(w, TitleStyle.Render(header))
	for _, m := range models {
		modified := "-"
		if t, ok := m.Modified(); ok {
			modified = t.Local().Format(time.DateOnly)
		}
		name := m.Name + strings.Repeat(" ", nameWidth-util.StringWidth(m.Name))
		fmt.Fprintf(w, "%s  %9s  %-8s  %-10s  %s\n",
			name, util.FormatBytes(m.Size), dash(m.ParameterSize()), dash(m.Family()), modified)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// =============================================================================
// PULL PROGRESS
// =============================================================================

// pullPrinter renders pull progress as a redrawn bar on terminals and as
// one line per status change otherwise. quiet suppresses it for JSON mode.
type pullPrinter struct {
	out        io.Writer
	plain      bool
	quiet      bool
	lastStatus string
	drawn      bool
}

func (p *pullPrinter) update(pr ollama.PullProgress) {
	switch {
	case p.quiet:
		return
	case p.plain:
		if pr.Status != p.lastStatus {
			p.lastStatus = pr.Status
			fmt.Fprintln(p.out, pr.Status)
		}
		return
	}

	line := pr.Status
	if pct := pr.Percent(); pct >= 0 {
		line = fmt.Sprintf("%s %s %3d%%", util.TruncateWidth(pr.Status, 24), styles.RenderProgressBar(30, float64(pct)), pct)
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
	p.drawn = true
}

func (p *pullPrinter) finish() {
	if p.drawn {
		fmt.Fprintln(p.out)
	}
}
