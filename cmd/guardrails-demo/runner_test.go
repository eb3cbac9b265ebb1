package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
	"github.com/minhyannv/guardrails-demo-go/pkg/rails"
)

type fakeGenerator struct {
	calls   [][]rails.Message
	failOn  string
	respond func(messages []rails.Message) rails.Response
}

func (f *fakeGenerator) Generate(_ context.Context, messages []rails.Message) (rails.Response, error) {
	snapshot := append([]rails.Message(nil), messages...)
	f.calls = append(f.calls, snapshot)

	last := messages[len(messages)-1].Content
	if f.failOn != "" && last == f.failOn {
		return rails.Response{}, errors.New("upstream unavailable")
	}
	if f.respond != nil {
		return f.respond(messages), nil
	}
	msg := rails.AssistantMessage("echo: " + last)
	return rails.Response{Message: &msg}, nil
}

func TestRunQueriesPrintsLabelPromptAndContent(t *testing.T) {
	gen := &fakeGenerator{respond: func([]rails.Message) rails.Response {
		msg := rails.AssistantMessage("Expect light rain tomorrow.")
		return rails.Response{Message: &msg}
	}}
	var out bytes.Buffer

	if err := runQueries(context.Background(), gen, demoQueries[:1], runOptions{}, &out); err != nil {
		t.Fatalf("runQueries failed: %v", err)
	}

	want := "\n=== On-topic (weather) ===\n" +
		"User: What's the weather in San Francisco tomorrow?\n" +
		"Assistant: Expect light rain tomorrow.\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}
	if len(gen.calls) != 1 || len(gen.calls[0]) != 1 || gen.calls[0][0].Role != rails.RoleUser {
		t.Fatalf("expected one single-turn call, got %+v", gen.calls)
	}
}

func TestRunQueriesPrintsRawResponses(t *testing.T) {
	gen := &fakeGenerator{respond: func([]rails.Message) rails.Response {
		return rails.Response{Raw: "plain text answer"}
	}}
	var out bytes.Buffer

	if err := runQueries(context.Background(), gen, demoQueries[:1], runOptions{}, &out); err != nil {
		t.Fatalf("runQueries failed: %v", err)
	}
	if !strings.Contains(out.String(), "Assistant: plain text answer\n") {
		t.Fatalf("expected raw response to be printed, got %q", out.String())
	}
}

func TestRunQueriesContinuesAfterFailure(t *testing.T) {
	gen := &fakeGenerator{failOn: demoQueries[1].Prompt}
	var out bytes.Buffer

	if err := runQueries(context.Background(), gen, demoQueries, runOptions{}, &out); err != nil {
		t.Fatalf("runQueries failed: %v", err)
	}

	if len(gen.calls) != len(demoQueries) {
		t.Fatalf("expected %d generate calls, got %d", len(demoQueries), len(gen.calls))
	}
	text := out.String()
	if got := strings.Count(text, "[error] upstream unavailable"); got != 1 {
		t.Fatalf("expected one error line, got %d in %q", got, text)
	}
	if got := strings.Count(text, "Assistant: "); got != len(demoQueries)-1 {
		t.Fatalf("expected %d assistant lines, got %d", len(demoQueries)-1, got)
	}
	for _, q := range demoQueries {
		if !strings.Contains(text, "=== "+q.Label+" ===") {
			t.Fatalf("missing header for %q", q.Label)
		}
	}
}

func TestRunQueriesRequiresGenerator(t *testing.T) {
	if err := runQueries(context.Background(), nil, demoQueries, runOptions{}, nil); err == nil {
		t.Fatal("expected missing generator error")
	}
}

func TestDemoQueriesOrder(t *testing.T) {
	labels := []string{"On-topic (weather)", "Prompt injection", "Jailbreak", "PII sharing", "Off-topic"}
	if len(demoQueries) != len(labels) {
		t.Fatalf("expected %d demo queries, got %d", len(labels), len(demoQueries))
	}
	for i, label := range labels {
		if demoQueries[i].Label != label {
			t.Fatalf("query %d: expected %q, got %q", i, label, demoQueries[i].Label)
		}
	}
}

func TestRunREPLExitKeywordsSkipGenerate(t *testing.T) {
	for _, input := range []string{"exit\n", "QUIT\n", "  Exit  \n"} {
		gen := &fakeGenerator{}
		var out bytes.Buffer
		if err := runREPL(context.Background(), gen, runOptions{}, strings.NewReader(input), &out); err != nil {
			t.Fatalf("runREPL(%q) failed: %v", input, err)
		}
		if len(gen.calls) != 0 {
			t.Fatalf("input %q: expected no generate calls, got %d", input, len(gen.calls))
		}
		if !strings.Contains(out.String(), "Type 'exit' to quit.") {
			t.Fatalf("expected banner, got %q", out.String())
		}
	}
}

func TestRunREPLKeepsHistory(t *testing.T) {
	gen := &fakeGenerator{}
	var out bytes.Buffer
	input := "Weather in Paris?\n\nAnd tomorrow?\nquit\n"

	if err := runREPL(context.Background(), gen, runOptions{}, strings.NewReader(input), &out); err != nil {
		t.Fatalf("runREPL failed: %v", err)
	}

	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 generate calls, got %d", len(gen.calls))
	}
	second := gen.calls[1]
	if len(second) != 3 {
		t.Fatalf("expected full history on second call, got %+v", second)
	}
	if second[1].Role != rails.RoleAssistant || second[1].Content != "echo: Weather in Paris?" {
		t.Fatalf("expected assistant turn in history, got %+v", second[1])
	}
	if !strings.Contains(out.String(), "You: Assistant: echo: And tomorrow?\n") {
		t.Fatalf("unexpected transcript %q", out.String())
	}
}

func TestRunREPLFailureKeepsUserTurnOnly(t *testing.T) {
	gen := &fakeGenerator{failOn: "boom"}
	var out bytes.Buffer
	input := "hello\nboom\nagain\nexit\n"

	if err := runREPL(context.Background(), gen, runOptions{}, strings.NewReader(input), &out); err != nil {
		t.Fatalf("runREPL failed: %v", err)
	}

	if len(gen.calls) != 3 {
		t.Fatalf("expected 3 generate calls, got %d", len(gen.calls))
	}
	if got := len(gen.calls[1]); got != 3 {
		t.Fatalf("failed call should see 3 turns, got %d", got)
	}
	third := gen.calls[2]
	if len(third) != 4 {
		t.Fatalf("expected failed user turn to stay without an assistant reply, got %+v", third)
	}
	if third[2].Role != rails.RoleUser || third[2].Content != "boom" {
		t.Fatalf("expected failed user turn in history, got %+v", third[2])
	}
	if !strings.Contains(out.String(), "[error] upstream unavailable\n") {
		t.Fatalf("expected error marker, got %q", out.String())
	}
}

func TestRunREPLEndsOnEOF(t *testing.T) {
	gen := &fakeGenerator{}
	var out bytes.Buffer

	if err := runREPL(context.Background(), gen, runOptions{}, strings.NewReader("hello"), &out); err != nil {
		t.Fatalf("runREPL failed: %v", err)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("expected one generate call before EOF, got %d", len(gen.calls))
	}
}

func TestRunREPLRequiresInput(t *testing.T) {
	if err := runREPL(context.Background(), &fakeGenerator{}, runOptions{}, nil, nil); err == nil {
		t.Fatal("expected missing input error")
	}
	if err := runREPL(context.Background(), nil, runOptions{}, strings.NewReader(""), nil); err == nil {
		t.Fatal("expected missing generator error")
	}
}

func TestVerboseRunLogsActivatedRails(t *testing.T) {
	gen := &fakeGenerator{respond: func([]rails.Message) rails.Response {
		msg := rails.AssistantMessage("I'm sorry, I can't respond to that.")
		return rails.Response{
			Message:   &msg,
			RequestID: "req-1",
			Activated: []rails.Activation{{Flow: "check topic", Stage: rails.StageInput, Action: rails.ActionBlock}},
		}
	}}
	var logs bytes.Buffer
	opts := runOptions{Verbose: true, Logger: loggerpkg.NewWriterLogger(&logs), SessionID: "s-1"}

	if err := runQueries(context.Background(), gen, demoQueries[4:], opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("runQueries failed: %v", err)
	}
	for _, want := range []string{"generate done", "check topic:block", "req-1", "s-1"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("expected %q in logs, got %q", want, logs.String())
		}
	}
}
