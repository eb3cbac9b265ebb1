package config

import (
	"strings"
)

const (
	// APIKeyEnv is the credential variable consumed by the OpenAI backend.
	APIKeyEnv  = "OPENAI_API_KEY"
	BaseURLEnv = "OPENAI_BASE_URL"
	ModelEnv   = "OPENAI_MODEL"

	DefaultLogFormat = "console"

	DefaultConfigPath = "config/config.yml"
	RAGConfigPath     = "config/config_rag.yml"
)

// Config holds all runtime configuration for the demo harness.
type Config struct {
	ConfigPath  string
	Interactive bool
	Verbose     bool
	// LogFormat selects diagnostic log output: console or json.
	LogFormat string

	APIKey  string
	BaseURL string
	Model   string
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		ConfigPath:  DefaultConfigPath,
		Interactive: false,
		Verbose:     false,
		LogFormat:   DefaultLogFormat,
	}
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	cfg.ConfigPath = strings.TrimSpace(cfg.ConfigPath)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath
	}
	return cfg
}
