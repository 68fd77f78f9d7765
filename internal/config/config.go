package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// History backends.
const (
	HistoryFile  = "file"
	HistoryRedis = "redis"
)

// EnvBackendURL overrides backend_url from any file.
const EnvBackendURL = "STUDYAI_BACKEND_URL"

// Config holds all configurable studyai settings.
type Config struct {
	BackendURL     string `json:"backend_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	HistoryBackend string `json:"history_backend"` // "file" | "redis"
	RedisAddr      string `json:"redis_addr"`
	RedisPrefix    string `json:"redis_prefix"`
	SpeechCommand  string `json:"speech_command"` // override auto-detect
	Locale         string `json:"locale"`
	LogLevel       string `json:"log_level"`
	ExportDir      string `json:"export_dir"`
	DefaultFormat  string `json:"default_format"` // "markdown" | "json" | "yaml" | "doc"
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		BackendURL:     "http://localhost:8000",
		TimeoutSeconds: 60,
		HistoryBackend: HistoryFile,
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "studyai:",
		Locale:         "en-US",
		LogLevel:       "info",
		ExportDir:      ".",
		DefaultFormat:  "markdown",
	}
}

// Timeout returns TimeoutSeconds as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Dir returns ~/.config/studyai.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "studyai"), nil
}

// LoadGlobal reads ~/.config/studyai/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return loadFile(filepath.Join(dir, "config.json"), true)
}

// LoadProject reads .studyairc in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".studyairc", false)
}

// Load merges global, project and environment settings.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, err
	}
	cfg := Merge(global, project)
	if u := os.Getenv(EnvBackendURL); u != "" {
		cfg.BackendURL = u
	}
	return cfg, nil
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer != nil {
			result.apply(layer)
		}
	}
	return result
}

// apply copies every set field of src over c.
func (c *Config) apply(src *Config) {
	setString(&c.BackendURL, src.BackendURL)
	setString(&c.HistoryBackend, src.HistoryBackend)
	setString(&c.RedisAddr, src.RedisAddr)
	setString(&c.RedisPrefix, src.RedisPrefix)
	setString(&c.SpeechCommand, src.SpeechCommand)
	setString(&c.Locale, src.Locale)
	setString(&c.LogLevel, src.LogLevel)
	setString(&c.ExportDir, src.ExportDir)
	setString(&c.DefaultFormat, src.DefaultFormat)
	if src.TimeoutSeconds > 0 {
		c.TimeoutSeconds = src.TimeoutSeconds
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
