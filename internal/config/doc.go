// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ollama-mobile.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Default base URL and socket timeouts
//   - SSHConfig: Port, timeouts and the remote start command
//   - UIConfig, LoggingConfig: Terminal and log settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OLLAMA_MOBILE_*), including ones from .env files
//   - <data dir>/config.toml
//   - <data dir>/config.json
//   - Built-in defaults
//
// The data directory is $OLLAMA_MOBILE_HOME or ~/.ollama-mobile. User
// preferences (base URL, first-launch flag, SSH login) are not part of the
// config; see package prefs.
//
// # Usage
//
//	cfg, err := config.Load()
//	if cfg == nil {
//		return err
//	}
//	client := ollama.NewClient(url, ollama.WithTimeouts(ollama.Timeouts{
//		Connect: cfg.ConnectTimeout(),
//		Read:    cfg.ReadTimeout(),
//		Write:   cfg.WriteTimeout(),
//	}))
package config
