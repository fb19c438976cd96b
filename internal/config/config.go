// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for jarvis.
//
// Configuration file locations (in order of precedence):
//   - ~/.jarvis/config.toml
//   - ~/.jarvis/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/jarvis-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete jarvis configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Response rendering
	Render RenderConfig `toml:"render" json:"render"`

	// Chat interface
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Development backend (jarvis serve)
	Server ServerConfig `toml:"server" json:"server"`
}

// BackendConfig describes the chat backend.
type BackendConfig struct {
	URL                  string          `toml:"url" json:"url"`
	TimeoutSeconds       int             `toml:"timeout_seconds" json:"timeout_seconds"`
	StreamTimeoutSeconds int             `toml:"stream_timeout_seconds" json:"stream_timeout_seconds"`
	Username             string          `toml:"username" json:"username"`
	Password             string          `toml:"password" json:"password"`
	Endpoints            EndpointsConfig `toml:"endpoints" json:"endpoints"`
}

// EndpointsConfig overrides backend paths. Empty values use the defaults.
type EndpointsConfig struct {
	Ask            string `toml:"ask" json:"ask"`
	AskStream      string `toml:"ask_stream" json:"ask_stream"`
	Feedback       string `toml:"feedback" json:"feedback"`
	GetShortcuts   string `toml:"get_shortcuts" json:"get_shortcuts"`
	AddShortcut    string `toml:"add_shortcut" json:"add_shortcut"`
	DeleteShortcut string `toml:"delete_shortcut" json:"delete_shortcut"`
	Login          string `toml:"login" json:"login"`
}

// RenderConfig controls how responses are revealed.
type RenderConfig struct {
	// IntervalMS is the delay between characters when pacing (default: 15).
	IntervalMS int `toml:"interval_ms" json:"interval_ms"`

	// StreamMode is how streamed responses are shown: "passthrough" or "paced".
	StreamMode string `toml:"stream_mode" json:"stream_mode"`
}

// UIConfig contains chat interface settings.
type UIConfig struct {
	// Streaming selects streamed responses on startup.
	Streaming bool `toml:"streaming" json:"streaming"`

	Theme          string `toml:"theme" json:"theme"`
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`

	// FallbackMessage replaces a buffered response that failed.
	FallbackMessage string `toml:"fallback_message" json:"fallback_message"`

	// StreamNotice is appended after partial streamed text on failure.
	StreamNotice string `toml:"stream_notice" json:"stream_notice"`

	// Suggestions are shown on the welcome screen.
	Suggestions []Suggestion `toml:"suggestions" json:"suggestions"`
}

// Suggestion is a welcome screen card. Append cards only fill the input.
type Suggestion struct {
	Title  string `toml:"title" json:"title"`
	Text   string `toml:"text" json:"text"`
	Append bool   `toml:"append" json:"append"`
}

// LogConfig controls the log sink.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// ServerConfig configures the development backend.
type ServerConfig struct {
	Addr         string `toml:"addr" json:"addr"`
	DBPath       string `toml:"db_path" json:"db_path"`
	ChunkDelayMS int    `toml:"chunk_delay_ms" json:"chunk_delay_ms"`
	Username     string `toml:"username" json:"username"`
	Password     string `toml:"password" json:"password"`
}

// Default values.
const (
	DefaultFallbackMessage = "Desculpe, ocorreu um erro de conexão."
	DefaultStreamNotice    = "[Conexão interrompida. A resposta pode estar incompleta.]"
	DefaultIntervalMS      = 15
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			URL:                  "http://127.0.0.1:5000",
			TimeoutSeconds:       60,
			StreamTimeoutSeconds: 300,
		},
		Render: RenderConfig{
			IntervalMS: DefaultIntervalMS,
			StreamMode: "passthrough",
		},
		UI: UIConfig{
			Streaming:       false,
			Theme:           "auto",
			ShowTimestamps:  true,
			FallbackMessage: DefaultFallbackMessage,
			StreamNotice:    DefaultStreamNotice,
			Suggestions: []Suggestion{
				{Title: "Previsão do tempo", Text: "Qual a previsão do tempo para hoje?"},
				{Title: "Resumo", Text: "Faça um resumo de ", Append: true},
				{Title: "Piada", Text: "Conte-me uma piada."},
				{Title: "Traduzir", Text: "Traduza para inglês: ", Append: true},
			},
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:5000",
			ChunkDelayMS: 40,
		},
	}
}

// Interval returns the pacing interval as a duration.
func (r RenderConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// Timeout returns the buffered request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// StreamTimeout returns the streamed request timeout; zero means none.
func (b BackendConfig) StreamTimeout() time.Duration {
	return time.Duration(b.StreamTimeoutSeconds) * time.Second
}

// ChunkDelay returns the delay between streamed chunks of the dev backend.
func (s ServerConfig) ChunkDelay() time.Duration {
	return time.Duration(s.ChunkDelayMS) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the jarvis configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("JARVIS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".jarvis"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. A .env file in the
// working directory or the config directory is read before environment
// overrides are applied.
func Load() (*Config, error) {
	LoadDotEnv()

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
// Values missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// Suggestions from the file replace the defaults rather than merging.
	cfg.UI.Suggestions = nil

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	if cfg.UI.Suggestions == nil {
		cfg.UI.Suggestions = Default().UI.Suggestions
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv reads .env files into the process environment. Variables that
// are already set are left untouched and missing files are ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Save writes cfg as TOML to the default location.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically. The file may hold a password, so
// it is owner-only.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills zero values that would make the config unusable.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Backend.URL == "" {
		c.Backend.URL = d.Backend.URL
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = d.Backend.TimeoutSeconds
	}
	if c.Render.IntervalMS == 0 {
		c.Render.IntervalMS = d.Render.IntervalMS
	}
	if c.Render.StreamMode == "" {
		c.Render.StreamMode = d.Render.StreamMode
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.FallbackMessage == "" {
		c.UI.FallbackMessage = d.UI.FallbackMessage
	}
	if c.UI.StreamNotice == "" {
		c.UI.StreamNotice = d.UI.StreamNotice
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

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

	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Backend.URL),
		})
	}
	if c.Backend.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout_seconds", Message: "must not be negative"})
	}
	if c.Backend.StreamTimeoutSeconds < 0 {
		errs = append(errs, ValidationError{Field: "backend.stream_timeout_seconds", Message: "must not be negative"})
	}

	if c.Render.IntervalMS < 1 || c.Render.IntervalMS > 1000 {
		errs = append(errs, ValidationError{
			Field:   "render.interval_ms",
			Message: fmt.Sprintf("%d out of range 1-1000", c.Render.IntervalMS),
		})
	}
	switch strings.ToLower(c.Render.StreamMode) {
	case "passthrough", "paced":
	default:
		errs = append(errs, ValidationError{
			Field:   "render.stream_mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: passthrough, paced", c.Render.StreamMode),
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	for i, s := range c.UI.Suggestions {
		if strings.TrimSpace(s.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ui.suggestions[%d].text", i),
				Message: "must not be empty",
			})
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Log.Level),
		})
	}

	if c.Server.ChunkDelayMS < 0 {
		errs = append(errs, ValidationError{Field: "server.chunk_delay_ms", Message: "must not be negative"})
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
//   - JARVIS_URL: overrides backend.url
//   - JARVIS_USER / JARVIS_PASSWORD: backend credentials
//   - JARVIS_STREAMING: "1" or "true" starts in streaming mode
//   - JARVIS_PACE_MS: overrides render.interval_ms
//   - JARVIS_STREAM_MODE: overrides render.stream_mode
//   - JARVIS_LOG_LEVEL: overrides log.level
//   - JARVIS_SERVER_ADDR / JARVIS_DB: development backend address and database
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("JARVIS_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("JARVIS_USER"); v != "" {
		c.Backend.Username = v
	}
	if v := os.Getenv("JARVIS_PASSWORD"); v != "" {
		c.Backend.Password = v
	}
	if v := os.Getenv("JARVIS_STREAMING"); v != "" {
		c.UI.Streaming = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("JARVIS_PACE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Render.IntervalMS = ms
		}
	}
	if v := os.Getenv("JARVIS_STREAM_MODE"); v != "" {
		c.Render.StreamMode = v
	}
	if v := os.Getenv("JARVIS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("JARVIS_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("JARVIS_DB"); v != "" {
		c.Server.DBPath = v
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.UI.Suggestions = append([]Suggestion(nil), c.UI.Suggestions...)
	return &out
}

// String returns the config as JSON with the password masked.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Backend.Password != "" {
		safe.Backend.Password = "********"
	}
	if safe.Server.Password != "" {
		safe.Server.Password = "********"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
