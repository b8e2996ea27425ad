// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ollama-mobile.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - <data dir>/config.toml
//   - <data dir>/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ollamamobile/ollama-mobile/internal/util"
)

// DefaultBaseURL is the server address used until the user configures one.
const DefaultBaseURL = "http://127.0.0.1:11434"

// DefaultStartCommand launches the server in the background on the SSH host.
const DefaultStartCommand = "nohup ollama serve > /dev/null 2>&1 &"

// Environment variables recognised by ApplyEnvOverrides and DataDir.
const (
	EnvHome         = "OLLAMA_MOBILE_HOME"
	EnvDefaultURL   = "OLLAMA_MOBILE_DEFAULT_URL"
	EnvSSHPort      = "OLLAMA_MOBILE_SSH_PORT"
	EnvStartCommand = "OLLAMA_MOBILE_SSH_START_COMMAND"
	EnvLogFile      = "OLLAMA_MOBILE_LOG_FILE"
	EnvDebug        = "OLLAMA_MOBILE_DEBUG"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ollama-mobile configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server connection settings
	Server ServerConfig `toml:"server" json:"server"`

	// Remote start over SSH
	SSH SSHConfig `toml:"ssh" json:"ssh"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// ServerConfig contains settings for talking to the Ollama server.
type ServerConfig struct {
	// DefaultURL seeds the base URL when no preference has been saved yet.
	DefaultURL string `toml:"default_url" json:"default_url"`
	// ConnectTimeoutSecs bounds establishing the TCP connection.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
	// ReadTimeoutSecs bounds each read; a stream silent for longer fails.
	ReadTimeoutSecs int `toml:"read_timeout_secs" json:"read_timeout_secs"`
	// WriteTimeoutSecs bounds each write.
	WriteTimeoutSecs int `toml:"write_timeout_secs" json:"write_timeout_secs"`
}

// SSHConfig contains settings for the remote start command.
type SSHConfig struct {
	// Port is used when the saved hostname does not carry one.
	Port int `toml:"port" json:"port"`
	// DialTimeoutSecs bounds the TCP connect and handshake.
	DialTimeoutSecs int `toml:"dial_timeout_secs" json:"dial_timeout_secs"`
	// CommandTimeoutSecs is how long to wait for a remote command to exit.
	CommandTimeoutSecs int `toml:"command_timeout_secs" json:"command_timeout_secs"`
	// StartCommand is run by "Start Ollama via SSH".
	StartCommand string `toml:"start_command" json:"start_command"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto" (detect from the terminal)
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the maximum rendered width of a reply; 0 uses the window width
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// File receives log output; empty means <data dir>/ollama-mobile.log
	File string `toml:"file" json:"file"`
	// Debug enables verbose stream logging
	Debug bool `toml:"debug" json:"debug"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			DefaultURL:         DefaultBaseURL,
			ConnectTimeoutSecs: 30,
			ReadTimeoutSecs:    120,
			WriteTimeoutSecs:   30,
		},

		SSH: SSHConfig{
			Port:               22,
			DialTimeoutSecs:    10,
			CommandTimeoutSecs: 10,
			StartCommand:       DefaultStartCommand,
		},

		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 0,
		},

		Logging: LoggingConfig{
			File:  "",
			Debug: false,
		},
	}
}

// ConnectTimeout returns the server connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectTimeoutSecs) * time.Second
}

// ReadTimeout returns the per-read server timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the per-write server timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSecs) * time.Second
}

// SSHDialTimeout returns the SSH connect timeout as a duration.
func (c *Config) SSHDialTimeout() time.Duration {
	return time.Duration(c.SSH.DialTimeoutSecs) * time.Second
}

// SSHCommandTimeout returns how long a remote command may run.
func (c *Config) SSHCommandTimeout() time.Duration {
	return time.Duration(c.SSH.CommandTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// DataDir returns the directory holding config, preferences and logs.
// OLLAMA_MOBILE_HOME overrides the default ~/.ollama-mobile.
func DataDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollama-mobile"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the configured log file, defaulting to the data directory.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ollama-mobile.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads variables from ./.env and <data dir>/.env.
// Variables already present in the environment are never overwritten.
func LoadDotEnv() error {
	if err := loadDotEnvFile(".env"); err != nil {
		return err
	}
	dir, err := DataDir()
	if err != nil {
		return err
	}
	return loadDotEnvFile(filepath.Join(dir, ".env"))
}

func loadDotEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if err := LoadDotEnv(); err != nil {
		loadErr = err
	}

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				loaded = true
			}
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				if err := LoadJSON(cfg, jsonPath); err != nil {
					loadErr = fmt.Errorf("failed to load JSON config: %w", err)
					cfg = Default()
				}
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Defaults plus any load error for informational purposes
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any zero values left by a partial file.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Server
	if cfg.Server.DefaultURL == "" {
		cfg.Server.DefaultURL = defaults.Server.DefaultURL
	}
	if cfg.Server.ConnectTimeoutSecs == 0 {
		cfg.Server.ConnectTimeoutSecs = defaults.Server.ConnectTimeoutSecs
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = defaults.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = defaults.Server.WriteTimeoutSecs
	}

	// SSH
	if cfg.SSH.Port == 0 {
		cfg.SSH.Port = defaults.SSH.Port
	}
	if cfg.SSH.DialTimeoutSecs == 0 {
		cfg.SSH.DialTimeoutSecs = defaults.SSH.DialTimeoutSecs
	}
	if cfg.SSH.CommandTimeoutSecs == 0 {
		cfg.SSH.CommandTimeoutSecs = defaults.SSH.CommandTimeoutSecs
	}
	if strings.TrimSpace(cfg.SSH.StartCommand) == "" {
		cfg.SSH.StartCommand = defaults.SSH.StartCommand
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ollama-mobile configuration file\n")
	buf.WriteString("# Preferences (base URL, SSH login) live in separate files next to this one.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Server
	if u, err := url.Parse(c.Server.DefaultURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.default_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Server.DefaultURL),
		})
	}
	for _, t := range []struct {
		field string
		value int
	}{
		{"server.connect_timeout_secs", c.Server.ConnectTimeoutSecs},
		{"server.read_timeout_secs", c.Server.ReadTimeoutSecs},
		{"server.write_timeout_secs", c.Server.WriteTimeoutSecs},
		{"ssh.dial_timeout_secs", c.SSH.DialTimeoutSecs},
		{"ssh.command_timeout_secs", c.SSH.CommandTimeoutSecs},
	} {
		if t.value <= 0 {
			errs = append(errs, ValidationError{Field: t.field, Message: "must be positive"})
		}
	}

	// SSH
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "ssh.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", c.SSH.Port),
		})
	}
	if strings.TrimSpace(c.SSH.StartCommand) == "" {
		errs = append(errs, ValidationError{Field: "ssh.start_command", Message: "must not be empty"})
	}

	// UI
	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OLLAMA_MOBILE_DEFAULT_URL: overrides server.default_url
//   - OLLAMA_MOBILE_SSH_PORT: overrides ssh.port
//   - OLLAMA_MOBILE_SSH_START_COMMAND: overrides ssh.start_command
//   - OLLAMA_MOBILE_LOG_FILE: overrides logging.file
//   - OLLAMA_MOBILE_DEBUG: set to "1" or "true" to enable debug logging
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv(EnvDefaultURL); u != "" {
		c.Server.DefaultURL = u
	}

	if port := os.Getenv(EnvSSHPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.SSH.Port = p
		}
	}

	if cmd := os.Getenv(EnvStartCommand); cmd != "" {
		c.SSH.StartCommand = cmd
	}

	if file := os.Getenv(EnvLogFile); file != "" {
		c.Logging.File = file
	}

	if debug := os.Getenv(EnvDebug); debug != "" {
		c.Logging.Debug = debug == "1" || strings.EqualFold(debug, "true")
	}
}

// =============================================================================
// GET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ssh.port").
func (c *Config) Get(key string) (interface{}, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag matches name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return tag
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + tomlName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// String returns the config encoded as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
