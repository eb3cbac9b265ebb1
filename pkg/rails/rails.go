// Package rails implements a guarded chat pipeline driven by a declarative
// configuration bundle: input rails, retrieval, the main model call, and
// output rails, in that order.
package rails

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/minhyannv/guardrails-demo-go/pkg/kb"
	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
)

// Rails is a guarded chat session built from a configuration bundle.
type Rails struct {
	config *Config
	llm    LLM
	flows  *registry
	kb     *kb.Base

	logger  loggerpkg.Logger
	verbose bool
}

// New builds the pipeline described by cfg.
func New(cfg *Config, opts ...Option) (*Rails, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	d := deps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	if d.logger == nil {
		d.logger = loggerpkg.NopLogger{}
	}

	mainModel, _ := cfg.MainModel()
	loggerpkg.Debug(d.verbose, d.logger, "rails init", map[string]any{
		"source":    cfg.SourcePath,
		"engine":    mainModel.Engine,
		"model":     mainModel.Model,
		"input":     cfg.Rails.Input.Flows,
		"retrieval": cfg.Rails.Retrieval.Flows,
		"output":    cfg.Rails.Output.Flows,
	})

	llm := d.llm
	if llm == nil {
		built, err := buildLLM(cfg, d)
		if err != nil {
			return nil, err
		}
		llm = built
	}

	var base *kb.Base
	if len(cfg.Rails.Retrieval.Flows) > 0 {
		dir := cfg.KnowledgeBaseDir()
		loaded, err := kb.LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: load knowledge base %s: %v", ErrInvalidConfig, dir, err)
		}
		base = loaded
		loggerpkg.Debug(d.verbose, d.logger, "knowledge base loaded", map[string]any{
			"path":   dir,
			"chunks": base.Len(),
		})
	}

	flows, err := newRegistry(flowEnv{
		cfg:     cfg,
		llm:     llm,
		kb:      base,
		logger:  d.logger,
		verbose: d.verbose,
	})
	if err != nil {
		return nil, err
	}

	return &Rails{
		config:  cfg,
		llm:     llm,
		flows:   flows,
		kb:      base,
		logger:  d.logger,
		verbose: d.verbose,
	}, nil
}

// Config returns the configuration the rails were built from.
func (r *Rails) Config() *Config {
	return r.config
}

// Generate runs the guarded pipeline over a conversation whose last turn is
// the user message to answer. The caller's slice is never modified.
func (r *Rails) Generate(ctx context.Context, messages []Message) (Response, error) {
	if err := validateConversation(messages); err != nil {
		return Response{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := uuid.NewString()
	conversation := append([]Message(nil), messages...)
	last := &conversation[len(conversation)-1]
	var activated []Activation

	for _, flow := range r.flows.stage(StageInput) {
		d, err := flow.Run(ctx, FlowInput{UserMessage: last.Content, History: conversation})
		if err != nil {
			return Response{}, fmt.Errorf("input rail %q: %w", flow.Name(), err)
		}
		activated = r.record(activated, requestID, flow, d)
		switch d.Action {
		case ActionBlock:
			return r.refuse(requestID, d, activated), nil
		case ActionModify:
			last.Content = d.Content
		}
	}

	var chunks []kb.Chunk
	for _, flow := range r.flows.stage(StageRetrieval) {
		d, err := flow.Run(ctx, FlowInput{UserMessage: last.Content, History: conversation})
		if err != nil {
			return Response{}, fmt.Errorf("retrieval rail %q: %w", flow.Name(), err)
		}
		activated = r.record(activated, requestID, flow, d)
		chunks = append(chunks, d.Chunks...)
	}

	prompt := BuildSystemPrompt(r.config, chunks)
	bot, err := r.llm.Complete(ctx, withSystemPrompt(prompt, conversation))
	if err != nil {
		return Response{}, fmt.Errorf("generate: %w", err)
	}

	for _, flow := range r.flows.stage(StageOutput) {
		d, err := flow.Run(ctx, FlowInput{UserMessage: last.Content, BotMessage: bot, History: conversation})
		if err != nil {
			return Response{}, fmt.Errorf("output rail %q: %w", flow.Name(), err)
		}
		activated = r.record(activated, requestID, flow, d)
		switch d.Action {
		case ActionBlock:
			return r.refuse(requestID, d, activated), nil
		case ActionModify:
			bot = d.Content
		}
	}

	msg := AssistantMessage(bot)
	return Response{Message: &msg, Activated: activated, RequestID: requestID}, nil
}

// GeneratePrompt runs the pipeline on a single user prompt and returns the
// answer as a raw string response.
func (r *Rails) GeneratePrompt(ctx context.Context, prompt string) (Response, error) {
	resp, err := r.Generate(ctx, []Message{UserMessage(prompt)})
	if err != nil {
		return Response{}, err
	}
	return Response{Raw: resp.Content(), Activated: resp.Activated, RequestID: resp.RequestID}, nil
}

func (r *Rails) refuse(requestID string, d Decision, activated []Activation) Response {
	text := strings.TrimSpace(d.Content)
	if text == "" {
		text = r.config.RefusalMessage
	}
	msg := AssistantMessage(text)
	return Response{Message: &msg, Activated: activated, RequestID: requestID}
}

func (r *Rails) record(activated []Activation, requestID string, flow Flow, d Decision) []Activation {
	action := d.Action
	if action == "" {
		action = ActionAllow
	}
	loggerpkg.Debug(r.verbose, r.logger, "rail executed", map[string]any{
		"request_id": requestID,
		"flow":       flow.Name(),
		"stage":      flow.Stage(),
		"action":     action,
		"reason":     d.Reason,
	})
	return append(activated, Activation{
		Flow:   flow.Name(),
		Stage:  flow.Stage(),
		Action: action,
		Reason: d.Reason,
	})
}

// Load reads the configuration bundle at path and builds the rails from it.
func Load(path string, opts ...Option) (*Rails, error) {
	cfg, err := FromPath(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}
