// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// url.go - Show or change the Ollama server URL.
//
// Examples:
//   ollama-mobile url                           Print the URL in use
//   ollama-mobile url http://192.168.1.5:11434  Save a new URL
//   ollama-mobile url --check                   Also ping the server

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ollamamobile/ollama-mobile/internal/prefs"
	"github.com/ollamamobile/ollama-mobile/internal/repository"
)

func newURLCommand(app *App) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "url [new-url]",
		Short: "Show or set the Ollama server URL",
		Long: `Without an argument, prints the server URL in use. With one, saves it;
surrounding whitespace and trailing slashes are removed. A running
full-screen session picks the new URL up immediately.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app.preferences()
			repo := app.repository(p)
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				_, err := repo.SetBaseURL(args[0])
				if errors.Is(err, repository.ErrEmptyBaseURL) {
					return &ValidationError{
						Field:   "server URL",
						Reason:  err.Error(),
						Example: "ollama-mobile url http://127.0.0.1:11434",
					}
				}
				if err != nil {
					return NewCommandError("url", "set", "cannot save", err)
				}
			}

			url := repo.BaseURL()
			data := URLData{
				BaseURL: url,
				Default: p.Store().GetString(prefs.KeyBaseURL, "") == "",
			}
			err := app.output(out, "url", data, func() {
				suffix := ""
				if data.Default {
					suffix = DimStyle.Render(" (default)")
				}
				fmt.Fprintf(out, "%s %s%s\n", RenderLabel("Server URL"), ValueStyle.Render(url), suffix)
			})
			if err != nil || !check {
				return err
			}

			start := time.Now()
			if err := repo.Ping(commandContext(cmd)); err != nil {
				return NewCommandError("url", "check", "server not reachable", err)
			}
			if !app.JSON {
				fmt.Fprintf(out, "%s reachable in %s\n", RenderStatus("ok"), time.Since(start).Round(time.Millisecond))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "ping the server after printing the URL")
	return cmd
}
