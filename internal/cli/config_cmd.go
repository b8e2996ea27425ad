// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Inspect the configuration.
//
// Examples:
//   ollama-mobile config show              Print the effective config as TOML
//   ollama-mobile config show server.default_url
//   ollama-mobile config path              Print file locations

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ollamamobile/ollama-mobile/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	show := &cobra.Command{
		Use:   "show [key]",
		Short: "Print the effective configuration, or one key",
		Args:  cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return config.GetAllKeys(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				v, err := app.Config.Get(args[0])
				if err != nil {
					return &ValidationError{Field: "config key", Value: args[0], Reason: err.Error(), Example: "server.default_url"}
				}
				return app.output(out, "config show", map[string]interface{}{args[0]: v}, func() {
					fmt.Fprintln(out, v)
				})
			}
			return app.output(out, "config show", app.Config, func() {
				fmt.Fprint(out, app.Config.String())
			})
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the data directory and file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tomlPath, err := config.ConfigPathTOML()
			if err != nil {
				return err
			}
			logPath, err := app.Config.LogPath()
			if err != nil {
				return err
			}
			paths := map[string]string{
				"data_dir": app.DataDir,
				"config":   tomlPath,
				"log":      logPath,
			}
			return app.output(cmd.OutOrStdout(), "config path", paths, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Data dir"), app.DataDir)
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Config"), tomlPath)
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Log"), logPath)
			})
		},
	}

	cmd.AddCommand(show, path)
	return cmd
}
