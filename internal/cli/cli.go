// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command tree and shared wiring for the ollama-mobile CLI.

package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ollamamobile/ollama-mobile/internal/config"
	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/prefs"
	"github.com/ollamamobile/ollama-mobile/internal/remote"
	"github.com/ollamamobile/ollama-mobile/internal/repository"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APPLICATION CONTEXT
// =============================================================================

// App carries the loaded configuration to every command. The root command
// fills it in before any subcommand runs.
type App struct {
	Config  *config.Config
	DataDir string
	JSON    bool

	// LoadWarning is a non-fatal problem found while loading config files.
	LoadWarning error

	logFile io.Closer
}

// load reads the configuration and prepares the data directory.
func (a *App) load() error {
	cfg, err := config.Load()
	if cfg == nil {
		return NewCommandError("config", "load", "invalid configuration", err)
	}
	a.LoadWarning = err

	dir, err := config.DataDir()
	if err != nil {
		return NewCommandError("config", "load", "no data directory", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return NewCommandError("config", "load", "cannot create data directory", err)
	}

	a.Config = cfg
	a.DataDir = dir
	return nil
}

// setupLogging sends log output to the configured file, or discards it.
// The TUI replaces this with tea.LogToFile.
func (a *App) setupLogging() {
	log.SetOutput(io.Discard)
	if a.Config.Logging.File == "" {
		return
	}
	f, err := os.OpenFile(a.Config.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s cannot open log file: %v\n", WarningStyle.Render("[WARN]"), err)
		return
	}
	log.SetOutput(f)
	a.logFile = f
}

// Close releases the log file.
func (a *App) Close() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

func (a *App) timeouts() ollama.Timeouts {
	return ollama.Timeouts{
		Connect: a.Config.ConnectTimeout(),
		Read:    a.Config.ReadTimeout(),
		Write:   a.Config.WriteTimeout(),
	}
}

func (a *App) preferences() *prefs.Preferences {
	return prefs.NewPreferences(a.DataDir)
}

func (a *App) repository(p *prefs.Preferences) *repository.Repository {
	return repository.New(p, a.Config.Server.DefaultURL,
		ollama.WithTimeouts(a.timeouts()),
		ollama.WithDebug(a.Config.Logging.Debug),
	)
}

func (a *App) credentials() *remote.CredentialStore {
	return remote.NewCredentialStore(a.DataDir)
}

func (a *App) runner(creds remote.CredentialSource) *remote.Runner {
	return remote.NewRunner(creds,
		remote.WithPort(a.Config.SSH.Port),
		remote.WithDialTimeout(a.Config.SSHDialTimeout()),
		remote.WithCommandTimeout(a.Config.SSHCommandTimeout()),
	)
}

// output prints data as JSON in JSON mode, and calls human otherwise.
func (a *App) output(w io.Writer, command string, data interface{}, human func()) error {
	if a.JSON {
		return NewJSONResponse(command, data).Write(w)
	}
	human()
	return nil
}

// =============================================================================
// COMMAND TREE
// =============================================================================

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "ollama-mobile",
		Short: "Chat with an Ollama server from the terminal",
		Long: `ollama-mobile is a small chat client for Ollama, built for phones
running Termux and other modest terminals.

Run it without arguments for the full-screen chat. The subcommands cover
the same features for scripts and line-mode terminals.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.load(); err != nil {
				return err
			}
			if cmd.Name() != "ollama-mobile" {
				app.setupLogging()
			}
			if app.LoadWarning != nil && !app.JSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", WarningStyle.Render("[WARN]"), app.LoadWarning)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), app)
		},
	}
	root.PersistentFlags().BoolVar(&app.JSON, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newChatCommand(app),
		newModelsCommand(app),
		newURLCommand(app),
		newSSHCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	app := &App{}
	defer app.Close()

	root := NewRootCommand(app)
	if err := root.Execute(); err != nil {
		w := root.ErrOrStderr()
		if app.JSON {
			w = root.OutOrStdout()
		}
		DisplayError(w, err, app.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Works even when the config is broken.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
			}
			return app.output(cmd.OutOrStdout(), "version", data, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "ollama-mobile %s (%s, built %s, %s)\n",
					data.Version, data.GitCommit, data.BuildDate, data.GoVersion)
			})
		},
	}
}
