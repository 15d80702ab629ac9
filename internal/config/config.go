// Package config provides configuration management for mentor.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
)

// Defaults applied when settings.json is absent or incomplete.
const (
	DefaultPort       = 8470
	DefaultRedisAddr  = "localhost:6379"
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultChatTTL    = 24 // hours
	DefaultHistoryCap = 20
	DefaultContext    = 10
	DefaultTimeout    = 120 // seconds per provider call
)

// DefaultProviders is the ordered rotation of model identifiers tried by the
// gateway. The first entry is preferred until it fails.
var DefaultProviders = []string{
	"deepseek/deepseek-r1:free",
	"google/gemini-2.0-flash-lite-preview-02-05:free",
	"meta-llama/llama-3-8b-instruct:free",
	"mistralai/mistral-7b-instruct:free",
	"microsoft/phi-3-medium-128k-instruct:free",
	"openrouter/auto:free",
}

// Config holds all runtime settings for the service.
type Config struct {
	Port      int    `json:"port"`
	RedisAddr string `json:"redis_addr"`

	// Model provider family. APIKey is normally supplied via the
	// OPENROUTER_API_KEY environment variable rather than the settings file.
	APIKey    string   `json:"api_key,omitempty"`
	BaseURL   string   `json:"base_url"`
	Providers []string `json:"providers"`

	// Optional collaborators. Empty URL disables the capability.
	SearchURL    string `json:"search_url,omitempty"`
	RetrievalURL string `json:"retrieval_url,omitempty"`

	// Retention per record kind, in hours. Zero means no expiry.
	ChatTTLHours  int `json:"chat_ttl_hours"`
	TaskTTLHours  int `json:"task_ttl_hours"`
	StudyTTLHours int `json:"study_ttl_hours"`

	HistoryCap     int `json:"history_cap"`
	ContextLimit   int `json:"context_limit"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		RedisAddr:      DefaultRedisAddr,
		BaseURL:        DefaultBaseURL,
		Providers:      append([]string(nil), DefaultProviders...),
		ChatTTLHours:   DefaultChatTTL,
		TaskTTLHours:   0,
		StudyTTLHours:  0,
		HistoryCap:     DefaultHistoryCap,
		ContextLimit:   DefaultContext,
		TimeoutSeconds: DefaultTimeout,
	}
}

// DataDir returns the mentor data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mentor"
	}
	return filepath.Join(home, ".mentor")
}

// SettingsPath returns the path to the settings file.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// MetricsPath returns the path the metrics exporter writes to.
func MetricsPath() string {
	return filepath.Join(DataDir(), "metrics.log")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureAll creates the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads settings.json, fills gaps with defaults, and applies
// environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = append([]string(nil), DefaultProviders...)
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = DefaultContext
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultTimeout
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. Env always wins
// over the settings file.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MENTOR_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("MENTOR_SEARCH_URL"); v != "" {
		c.SearchURL = v
	}
	if v := os.Getenv("MENTOR_RETRIEVAL_URL"); v != "" {
		c.RetrievalURL = v
	}
	if v := os.Getenv("MENTOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
}
