package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	configpkg "github.com/minhyannv/guardrails-demo-go/pkg/config"
)

// cliOptions is the parsed command line.
type cliOptions struct {
	Config configpkg.Config
	// APIKey is the --api-key override, applied by the environment resolver.
	APIKey string
}

// parseCLIConfig parses flags into runtime config. Credential and endpoint
// values are filled in later, once the environment has been resolved.
func parseCLIConfig(args []string, errOut io.Writer) (cliOptions, error) {
	defaults := configpkg.DefaultConfig()

	fs := flag.NewFlagSet("guardrails-demo", flag.ContinueOnError)
	if errOut != nil {
		fs.SetOutput(errOut)
	}
	interactive := fs.Bool("interactive", defaults.Interactive, "Run in interactive chat mode")
	apiKey := fs.String("api-key", "", "OpenAI API key (overrides .env)")
	configPath := fs.String("config", defaults.ConfigPath, "Guardrails configuration file or directory")
	verbose := fs.Bool("verbose", defaults.Verbose, "Verbose rail logging")
	logFormat := fs.String("log-format", defaults.LogFormat, "Diagnostic log format: console or json")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := defaults
	cfg.Interactive = *interactive
	cfg.Verbose = *verbose
	cfg.ConfigPath = *configPath
	cfg.LogFormat = *logFormat
	return cliOptions{Config: configpkg.Normalize(cfg), APIKey: strings.TrimSpace(*apiKey)}, nil
}

// applyEnvironment copies the resolved credential and endpoint settings into cfg.
func applyEnvironment(cfg configpkg.Config, credential string) configpkg.Config {
	cfg.APIKey = credential
	cfg.BaseURL = os.Getenv(configpkg.BaseURLEnv)
	cfg.Model = os.Getenv(configpkg.ModelEnv)
	return configpkg.Normalize(cfg)
}
