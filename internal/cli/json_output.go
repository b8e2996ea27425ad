// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting the ollama-mobile CLI.

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope every command prints with --json.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *string     `json:"error"`
	// Detail classifies the error; absent on success
	Detail    json.RawMessage `json:"detail,omitempty"`
	Timestamp string          `json:"timestamp"`
	Command   string          `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Detail:    errorJSON(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// URLData is returned by the url command.
type URLData struct {
	BaseURL string `json:"base_url"`
	Default bool   `json:"default"`
}

// SSHData is returned by ssh show. The password is never included.
type SSHData struct {
	Hostname    string `json:"hostname"`
	Username    string `json:"username"`
	HasPassword bool   `json:"has_password"`
	Address     string `json:"address,omitempty"`
}

// ExecData is returned by ssh exec and ssh start.
type ExecData struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}
