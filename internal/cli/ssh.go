// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ssh.go - SSH login and remote commands.
//
// Examples:
//   ollama-mobile ssh set 192.168.1.5 u0_a123   Save a login (prompts for the password)
//   ollama-mobile ssh show                      Print the saved login
//   ollama-mobile ssh exec uptime               Run a command on the host
//   ollama-mobile ssh start                     Start "ollama serve" on the host

package cli

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ollamamobile/ollama-mobile/internal/chatstate"
	"github.com/ollamamobile/ollama-mobile/internal/remote"
	"github.com/ollamamobile/ollama-mobile/internal/ui/components"
)

func newSSHCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Manage the SSH login used to start Ollama remotely",
	}

	set := &cobra.Command{
		Use:   "set <hostname[:port]> <username>",
		Short: "Save the SSH login",
		Long: `Saves the hostname, username and password used to run commands on the
Ollama host. The password is read without echo from the terminal, or as a
single line from stdin when piped. It is stored in plain text in the data
directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			creds := remote.Credentials{
				Hostname: strings.TrimSpace(args[0]),
				Username: strings.TrimSpace(args[1]),
				Password: password,
			}
			if !creds.Complete() {
				return &ValidationError{Field: "SSH login", Reason: "hostname, username and password are required"}
			}
			if err := app.credentials().Save(creds); err != nil {
				return NewCommandError("ssh", "set", "cannot save login", err)
			}
			return app.output(cmd.OutOrStdout(), "ssh set", sshData(creds, app.Config.SSH.Port), func() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Saved login for %s@%s\n",
					RenderStatus("ok"), creds.Username, creds.Address(app.Config.SSH.Port))
			})
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved SSH login (without the password)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, ok := app.credentials().Load()
			if !ok {
				return remote.ErrNoCredentials
			}
			data := sshData(creds, app.Config.SSH.Port)
			return app.output(cmd.OutOrStdout(), "ssh show", data, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Hostname"), ValueStyle.Render(data.Hostname))
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Username"), ValueStyle.Render(data.Username))
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Password"), DimStyle.Render("********"))
				fmt.Fprintf(out, "%s %s\n", RenderLabel("Address"), ValueStyle.Render(data.Address))
			})
		},
	}

	exec := &cobra.Command{
		Use:   "exec <command>...",
		Short: "Run a command on the SSH host and print its output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(cmd, app, "ssh exec", strings.Join(args, " "))
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the Ollama server on the SSH host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemote(cmd, app, "ssh start", app.Config.SSH.StartCommand)
		},
	}

	cmd.AddCommand(set, show, exec, start)
	return cmd
}

func sshData(c remote.Credentials, port int) SSHData {
	return SSHData{
		Hostname:    c.Hostname,
		Username:    c.Username,
		HasPassword: c.Password != "",
		Address:     c.Address(port),
	}
}

// runRemote executes command over SSH with the saved login.
func runRemote(cmd *cobra.Command, app *App, name, command string) error {
	out := cmd.OutOrStdout()
	if !app.JSON && IsStdoutTTY() {
		fmt.Fprintln(out, components.RenderCommand(command))
	}

	runner := app.runner(app.credentials())
	output, err := runner.Execute(commandContext(cmd), command)
	if err != nil {
		log.Printf("CLI_SSH_FAILED | command=%q error=%v", command, err)
		return err
	}

	return app.output(out, name, ExecData{Command: command, Output: output}, func() {
		printRemoteOutput(out, name, output)
	})
}

func printRemoteOutput(w io.Writer, name, output string) {
	if output != "" {
		fmt.Fprint(w, output)
		if !strings.HasSuffix(output, "\n") {
			fmt.Fprintln(w)
		}
	}
	if name == "ssh start" {
		fmt.Fprintf(w, "%s %s\n", RenderStatus("ok"), chatstate.SSHStarted)
	}
}
