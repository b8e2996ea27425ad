// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ollama-mobile command tree.
//
// Running the binary without arguments opens the full-screen chat. The
// subcommands expose the same features for scripts and for terminals where
// the full-screen UI does not fit.
//
// # Commands
//
//   - (none): full-screen chat, model download and SSH screens
//   - chat: line-mode chat with input history
//   - models list | pull: installed models and downloads
//   - url [new-url]: show or change the server URL
//   - ssh set | show | exec | start: the SSH login and remote commands
//   - config show | path: effective configuration and file locations
//   - version: build information
//
// Every command accepts --json and prints a JSONResponse envelope. Errors
// map to exit codes through GetExitCode.
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
package cli
