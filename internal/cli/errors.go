// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for the ollama-mobile CLI commands.
//
// Commands always return errors; Execute displays them once and maps them
// to an exit code.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ollamamobile/ollama-mobile/internal/ollama"
	"github.com/ollamamobile/ollama-mobile/internal/remote"
	"github.com/ollamamobile/ollama-mobile/internal/repository"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	ExitInterrupted   = 130 // 128 + SIGINT
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "models"
	Action  string // e.g. "pull"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents invalid user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string // optional
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse("", err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

// errorHint suggests a fix for well-known failures.
func errorHint(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Is Ollama running? Start it with `ollama serve` or `ollama-mobile ssh start`."
	case errors.Is(err, remote.ErrNoCredentials):
		return "Save a login first with `ollama-mobile ssh set`."
	case ollama.IsModelNotFound(err):
		return "Download it with `ollama-mobile models pull <name>`."
	default:
		return ""
	}
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &ttyErr),
		errors.Is(err, repository.ErrEmptyBaseURL):
		return ExitUsageError
	case errors.Is(err, remote.ErrNoCredentials):
		return ExitConfigError
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	case ollama.IsModelNotFound(err):
		return ExitNotFoundError
	case ollama.IsTimeout(err), errors.Is(err, remote.ErrCommandTimeout):
		return ExitTimeoutError
	case ollama.IsCanceled(err):
		return ExitInterrupted
	}
	return ExitGeneralError
}

// errorJSON is the error detail added to JSON error responses.
func errorJSON(err error) json.RawMessage {
	detail := map[string]string{"error_type": "generic_error"}

	var cmdErr *CommandError
	var validationErr *ValidationError
	var exitErr *remote.ExitError
	switch {
	case errors.As(err, &validationErr):
		detail["error_type"] = "validation_error"
		detail["field"] = validationErr.Field
		detail["reason"] = validationErr.Reason
	case errors.As(err, &exitErr):
		detail["error_type"] = "remote_exit"
		detail["exit_code"] = fmt.Sprint(exitErr.Code)
	case errors.As(err, &cmdErr):
		detail["error_type"] = "command_error"
		detail["command"] = cmdErr.Command
		detail["action"] = cmdErr.Action
	}
	if code := ollama.StatusCode(err); code != 0 {
		detail["http_status"] = strconv.Itoa(code)
	}

	data, _ := json.Marshal(detail)
	return data
}
