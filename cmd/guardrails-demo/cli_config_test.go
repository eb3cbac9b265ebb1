package main

import (
	"io"
	"testing"

	configpkg "github.com/minhyannv/guardrails-demo-go/pkg/config"
)

func TestParseCLIConfigDefaults(t *testing.T) {
	opts, err := parseCLIConfig(nil, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Config.Interactive {
		t.Fatal("expected batch mode by default")
	}
	if opts.Config.ConfigPath != configpkg.DefaultConfigPath {
		t.Fatalf("expected default config path, got %q", opts.Config.ConfigPath)
	}
	if opts.APIKey != "" {
		t.Fatalf("expected no api key override, got %q", opts.APIKey)
	}
}

func TestParseCLIConfigAcceptsDoubleDashFlags(t *testing.T) {
	opts, err := parseCLIConfig([]string{
		"--interactive",
		"--api-key", " sk-test ",
		"--config", "config/config_rag.yml",
		"--verbose",
		"--log-format", "json",
	}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.Config.Interactive || !opts.Config.Verbose {
		t.Fatalf("expected interactive and verbose, got %+v", opts.Config)
	}
	if opts.APIKey != "sk-test" {
		t.Fatalf("expected trimmed api key, got %q", opts.APIKey)
	}
	if opts.Config.LogFormat != "json" {
		t.Fatalf("expected json log format, got %q", opts.Config.LogFormat)
	}
	if opts.Config.ConfigPath != "config/config_rag.yml" {
		t.Fatalf("unexpected config path %q", opts.Config.ConfigPath)
	}
}

func TestParseCLIConfigRejectsUnknownInput(t *testing.T) {
	if _, err := parseCLIConfig([]string{"--bogus"}, io.Discard); err == nil {
		t.Fatal("expected unknown flag to be rejected")
	}
	if _, err := parseCLIConfig([]string{"stray"}, io.Discard); err == nil {
		t.Fatal("expected positional argument to be rejected")
	}
}

func TestApplyEnvironmentUsesResolvedCredential(t *testing.T) {
	t.Setenv(configpkg.BaseURLEnv, " http://localhost:8080/v1 ")
	t.Setenv(configpkg.ModelEnv, "gpt-test")

	cfg := applyEnvironment(configpkg.DefaultConfig(), "sk-resolved")
	if cfg.APIKey != "sk-resolved" {
		t.Fatalf("expected resolved credential, got %q", cfg.APIKey)
	}
	if cfg.BaseURL != "http://localhost:8080/v1" || cfg.Model != "gpt-test" {
		t.Fatalf("unexpected endpoint settings: %+v", cfg)
	}
}
