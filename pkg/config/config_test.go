package config

import "testing"

func TestDefaultConfigUsesMainBundle(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ConfigPath != DefaultConfigPath {
		t.Fatalf("expected default config path %q, got %q", DefaultConfigPath, cfg.ConfigPath)
	}
	if cfg.Interactive {
		t.Fatal("expected batch mode by default")
	}
}

func TestNormalizeTrimsAndRestoresDefaults(t *testing.T) {
	cfg := Normalize(Config{
		ConfigPath: "   ",
		APIKey:     "  sk-test \n",
		Model:      " gpt-4o-mini ",
	})
	if cfg.ConfigPath != DefaultConfigPath {
		t.Fatalf("expected empty config path to fall back to default, got %q", cfg.ConfigPath)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("expected trimmed api key, got %q", cfg.APIKey)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("expected trimmed model, got %q", cfg.Model)
	}
}

func TestNormalizeLogFormat(t *testing.T) {
	if got := Normalize(Config{}).LogFormat; got != DefaultLogFormat {
		t.Fatalf("expected default log format, got %q", got)
	}
	if got := Normalize(Config{LogFormat: " JSON "}).LogFormat; got != "json" {
		t.Fatalf("expected lowercased log format, got %q", got)
	}
}
