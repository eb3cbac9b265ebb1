// Command guardrails-demo runs the weather assistant behind its guardrails,
// either over a fixed set of demo prompts or as an interactive chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	configpkg "github.com/minhyannv/guardrails-demo-go/pkg/config"
	"github.com/minhyannv/guardrails-demo-go/pkg/envfile"
	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
	"github.com/minhyannv/guardrails-demo-go/pkg/rails"
)

func main() {
	opts, err := parseCLIConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	cfg := opts.Config

	appLogger, err := loggerpkg.New(os.Stderr, cfg.LogFormat)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	resolver := envfile.New(configpkg.APIKeyEnv)
	resolver.Logger = appLogger
	resolver.Verbose = cfg.Verbose
	resolved := resolver.Resolve(opts.APIKey)
	printWarnings(os.Stdout, resolved.Warnings)
	cfg = applyEnvironment(cfg, resolved.Credential)

	session, err := rails.Load(cfg.ConfigPath,
		rails.WithAPIKey(cfg.APIKey),
		rails.WithBaseURL(cfg.BaseURL),
		rails.WithModel(cfg.Model),
		rails.WithLogger(appLogger),
		rails.WithVerbose(cfg.Verbose),
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	runOpts := runOptions{
		Verbose:   cfg.Verbose,
		Logger:    appLogger,
		SessionID: uuid.NewString(),
	}
	if cfg.Interactive {
		err = runREPL(ctx, session, runOpts, os.Stdin, os.Stdout)
	} else {
		err = runQueries(ctx, session, demoQueries, runOpts, os.Stdout)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printWarnings(out io.Writer, warnings []string) {
	for _, w := range warnings {
		_, _ = fmt.Fprintln(out, "[warn]", w)
	}
}
