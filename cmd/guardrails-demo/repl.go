package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
	"github.com/minhyannv/guardrails-demo-go/pkg/rails"
)

// runOptions configures diagnostic output for both run modes.
type runOptions struct {
	Verbose   bool
	Logger    loggerpkg.Logger
	SessionID string
}

func (o runOptions) logResponse(turn string, resp rails.Response) {
	if !o.Verbose || o.Logger == nil {
		return
	}
	flows := make([]string, 0, len(resp.Activated))
	for _, a := range resp.Activated {
		flows = append(flows, fmt.Sprintf("%s:%s", a.Flow, a.Action))
	}
	loggerpkg.Debug(o.Verbose, o.Logger, "generate done", map[string]any{
		"session":    o.SessionID,
		"turn":       turn,
		"request_id": resp.RequestID,
		"blocked":    resp.Blocked(),
		"rails":      strings.Join(flows, ","),
	})
}

// runREPL starts an interactive chat that keeps the whole conversation.
func runREPL(ctx context.Context, gen generator, opts runOptions, in io.Reader, out io.Writer) error {
	if gen == nil {
		return fmt.Errorf("generator is required")
	}
	if in == nil {
		return fmt.Errorf("input reader is required")
	}
	if out == nil {
		out = io.Discard
	}

	loggerpkg.Debug(opts.Verbose, opts.Logger, "repl start", map[string]any{"session": opts.SessionID})

	var messages []rails.Message
	scanner := bufio.NewScanner(in)
	printWelcome(out)

	for {
		_, _ = fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExitKeyword(input) {
			break
		}

		messages = append(messages, rails.UserMessage(input))
		resp, err := gen.Generate(ctx, messages)
		if err != nil {
			_, _ = fmt.Fprintln(out, "[error]", err.Error())
			continue
		}

		content := resp.Content()
		opts.logResponse(strconv.Itoa(len(messages)), resp)
		_, _ = fmt.Fprintln(out, "Assistant:", content)
		messages = append(messages, rails.AssistantMessage(content))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func isExitKeyword(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}

func printWelcome(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Guardrails demo - weather-only assistant. Type 'exit' to quit.")
}
