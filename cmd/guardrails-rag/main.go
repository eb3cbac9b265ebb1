// Command guardrails-rag asks one question of the company-policy assistant,
// which answers from its local knowledge base behind the configured rails.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	configpkg "github.com/minhyannv/guardrails-demo-go/pkg/config"
	"github.com/minhyannv/guardrails-demo-go/pkg/envfile"
	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
	"github.com/minhyannv/guardrails-demo-go/pkg/rails"
)

const defaultQuestion = "What are the company policies?"

type prompter interface {
	GeneratePrompt(ctx context.Context, prompt string) (rails.Response, error)
}

func main() {
	fs := flag.NewFlagSet("guardrails-rag", flag.ExitOnError)
	configPath := fs.String("config", configpkg.RAGConfigPath, "Guardrails configuration file or directory")
	question := fs.String("question", defaultQuestion, "Question to ask")
	apiKey := fs.String("api-key", "", "OpenAI API key (overrides .env)")
	verbose := fs.Bool("verbose", false, "Verbose rail logging")
	logFormat := fs.String("log-format", configpkg.DefaultLogFormat, "Diagnostic log format: console or json")
	_ = fs.Parse(os.Args[1:])

	appLogger, err := loggerpkg.New(os.Stderr, *logFormat)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	resolver := envfile.New(configpkg.APIKeyEnv)
	resolver.Logger = appLogger
	resolver.Verbose = *verbose
	resolved := resolver.Resolve(strings.TrimSpace(*apiKey))
	for _, w := range resolved.Warnings {
		_, _ = fmt.Fprintln(os.Stdout, "[warn]", w)
	}

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = configpkg.RAGConfigPath
	}
	cfg := configpkg.Normalize(configpkg.Config{
		ConfigPath: path,
		Verbose:    *verbose,
		APIKey:     resolved.Credential,
		BaseURL:    os.Getenv(configpkg.BaseURLEnv),
		Model:      os.Getenv(configpkg.ModelEnv),
	})

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

	if err := ask(context.Background(), session, *question, os.Stdout); err != nil {
		os.Exit(1)
	}
}

// ask sends question as a single prompt and prints the bot reply.
func ask(ctx context.Context, gen prompter, question string, out io.Writer) error {
	question = strings.TrimSpace(question)
	if question == "" {
		question = defaultQuestion
	}
	resp, err := gen.GeneratePrompt(ctx, question)
	if err != nil {
		_, _ = fmt.Fprintln(out, "[error]", err.Error())
		return err
	}
	_, _ = fmt.Fprintf(out, "Bot: %s\n", resp.Content())
	return nil
}
