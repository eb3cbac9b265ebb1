package rails

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/minhyannv/guardrails-demo-go/pkg/kb"
)

// Built-in flow names, as referenced from configuration bundles.
const (
	flowJailbreakHeuristics = "jailbreak detection heuristics"
	flowMaskInput           = "mask sensitive data on input"
	flowMaskOutput          = "mask sensitive data on output"
	flowCheckTopic          = "check topic"
	flowSelfCheckInput      = "self check input"
	flowSelfCheckOutput     = "self check output"
	flowRetrieveChunks      = "retrieve relevant chunks"
)

// FlowInput is what a flow sees of the current exchange.
type FlowInput struct {
	UserMessage string
	BotMessage  string
	History     []Message
}

// Decision is the outcome of one flow run.
type Decision struct {
	Action  Action
	Content string
	Reason  string
	Chunks  []kb.Chunk
}

// Flow is a single rail.
type Flow interface {
	Name() string
	Stage() Stage
	Run(ctx context.Context, in FlowInput) (Decision, error)
}

func allow() Decision {
	return Decision{Action: ActionAllow}
}

var defaultJailbreakPatterns = []string{
	`(?i)\b(ignore|disregard|forget)\s+(all\s+)?(of\s+)?(the\s+|your\s+)?(previous|prior|above|earlier)\s+(instructions|prompts?|rules|directions)`,
	`(?i)\b(reveal|show|print|repeat|output|tell\s+me)\s+(me\s+)?(your|the)\s+(system\s+prompt|hidden\s+prompt|initial\s+instructions|instructions)`,
	`(?i)\bwhat\s+(is|are)\s+your\s+(system\s+prompt|system\s+instructions)`,
	`(?i)\bact\s+as\s+(dan|an?\s+(unfiltered|unrestricted|uncensored))\b`,
	`\bDAN\b`,
	`(?i)\bdo\s+anything\s+now\b`,
	`(?i)\b(developer|god|jailbreak)\s+mode\b`,
	`(?i)\bpretend\s+(you\s+are|to\s+be)\b.*\b(no|without)\s+(restrictions|rules|filters|limits)`,
	`(?i)\byou\s+are\s+now\s+(a|an|in)\b`,
}

type jailbreakFlow struct {
	patterns []*regexp.Regexp
}

func newJailbreakFlow(env flowEnv) (Flow, error) {
	raw := append(append([]string{}, defaultJailbreakPatterns...), env.cfg.Rails.Config.JailbreakDetection.Patterns...)
	f := &jailbreakFlow{patterns: make([]*regexp.Regexp, 0, len(raw))}
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile jailbreak pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

func (f *jailbreakFlow) Name() string { return flowJailbreakHeuristics }
func (f *jailbreakFlow) Stage() Stage { return StageInput }

func (f *jailbreakFlow) Run(_ context.Context, in FlowInput) (Decision, error) {
	for _, re := range f.patterns {
		if re.MatchString(in.UserMessage) {
			return Decision{Action: ActionBlock, Reason: "jailbreak attempt detected"}, nil
		}
	}
	return allow(), nil
}

type sensitiveDataFlow struct {
	name     string
	stage    Stage
	action   string
	patterns []piiPattern
}

func newSensitiveDataFlow(stage Stage) flowBuilder {
	return func(env flowEnv) (Flow, error) {
		rule := env.cfg.Rails.Config.SensitiveData.Input
		name := flowMaskInput
		if stage == StageOutput {
			rule = env.cfg.Rails.Config.SensitiveData.Output
			name = flowMaskOutput
		}
		patterns, err := piiPatternsFor(rule.Entities)
		if err != nil {
			return nil, err
		}
		return &sensitiveDataFlow{name: name, stage: stage, action: rule.Action, patterns: patterns}, nil
	}
}

func (f *sensitiveDataFlow) Name() string { return f.name }
func (f *sensitiveDataFlow) Stage() Stage { return f.stage }

func (f *sensitiveDataFlow) Run(_ context.Context, in FlowInput) (Decision, error) {
	text := in.UserMessage
	if f.stage == StageOutput {
		text = in.BotMessage
	}
	masked, found := maskPII(text, f.patterns)
	if len(found) == 0 {
		return allow(), nil
	}
	reason := "sensitive data detected: " + strings.Join(found, ", ")
	if f.action == SensitiveActionBlock {
		return Decision{Action: ActionBlock, Reason: reason}, nil
	}
	return Decision{Action: ActionModify, Content: masked, Reason: reason}, nil
}

type topicFlow struct {
	allowed  *regexp.Regexp
	refusal  string
	refusals map[string]struct{}
}

func newTopicFlow(env flowEnv) (Flow, error) {
	topics := env.cfg.Rails.Config.Topics
	f := &topicFlow{refusal: strings.TrimSpace(topics.Refusal), refusals: map[string]struct{}{}}
	for _, r := range []string{f.refusal, env.cfg.RefusalMessage, DefaultRefusalMessage} {
		if r = strings.TrimSpace(r); r != "" {
			f.refusals[r] = struct{}{}
		}
	}
	keywords := make([]string, 0, len(topics.Allowed))
	for _, k := range topics.Allowed {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, regexp.QuoteMeta(k))
		}
	}
	if len(keywords) > 0 {
		f.allowed = regexp.MustCompile(`(?i)\b(` + strings.Join(keywords, "|") + `)`)
	}
	return f, nil
}

func (f *topicFlow) Name() string { return flowCheckTopic }
func (f *topicFlow) Stage() Stage { return StageInput }

func (f *topicFlow) Run(_ context.Context, in FlowInput) (Decision, error) {
	if f.allowed == nil || f.allowed.MatchString(in.UserMessage) {
		return allow(), nil
	}
	if f.continuesTopic(in.History) {
		return Decision{Action: ActionAllow, Reason: "follow-up to an on-topic exchange"}, nil
	}
	return Decision{Action: ActionBlock, Content: f.refusal, Reason: "off-topic request"}, nil
}

// continuesTopic reports whether the last turn follows up an allowed exchange:
// an earlier user turn matched the allow-list and the latest assistant turn
// was not a refusal.
func (f *topicFlow) continuesTopic(history []Message) bool {
	if len(history) < 2 {
		return false
	}
	prior := history[:len(history)-1]
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Role != RoleAssistant {
			continue
		}
		if _, refused := f.refusals[strings.TrimSpace(prior[i].Content)]; refused {
			return false
		}
		break
	}
	for _, m := range prior {
		if m.Role == RoleUser && f.allowed.MatchString(m.Content) {
			return true
		}
	}
	return false
}

type selfCheckFlow struct {
	name   string
	stage  Stage
	prompt *template.Template
	llm    LLM
}

func newSelfCheckFlow(stage Stage) flowBuilder {
	return func(env flowEnv) (Flow, error) {
		name, task := flowSelfCheckInput, TaskSelfCheckInput
		if stage == StageOutput {
			name, task = flowSelfCheckOutput, TaskSelfCheckOutput
		}
		content, ok := env.cfg.Prompt(task)
		if !ok {
			return nil, fmt.Errorf("missing prompt for task %q", task)
		}
		tmpl, err := template.New(task).Option("missingkey=zero").Parse(content)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", task, err)
		}
		if env.llm == nil {
			return nil, fmt.Errorf("flow %q requires a model", name)
		}
		return &selfCheckFlow{name: name, stage: stage, prompt: tmpl, llm: env.llm}, nil
	}
}

func (f *selfCheckFlow) Name() string { return f.name }
func (f *selfCheckFlow) Stage() Stage { return f.stage }

func (f *selfCheckFlow) Run(ctx context.Context, in FlowInput) (Decision, error) {
	var buf bytes.Buffer
	if err := f.prompt.Execute(&buf, map[string]string{
		"user_input":   in.UserMessage,
		"bot_response": in.BotMessage,
	}); err != nil {
		return Decision{}, fmt.Errorf("render prompt: %w", err)
	}
	answer, err := f.llm.Complete(ctx, []Message{UserMessage(buf.String())})
	if err != nil {
		return Decision{}, err
	}
	if isAffirmative(answer) {
		return Decision{Action: ActionBlock, Reason: "self check flagged the " + string(f.stage)}, nil
	}
	return allow(), nil
}

// isAffirmative reports whether a self-check answer says the message should be blocked.
func isAffirmative(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	answer = strings.TrimLeft(answer, "\"'`*")
	return strings.HasPrefix(answer, "yes")
}

type retrievalFlow struct {
	base *kb.Base
	topK int
}

func newRetrievalFlow(env flowEnv) (Flow, error) {
	if env.kb == nil {
		return nil, fmt.Errorf("flow %q requires a knowledge base", flowRetrieveChunks)
	}
	return &retrievalFlow{base: env.kb, topK: env.cfg.KnowledgeBase.TopK}, nil
}

func (f *retrievalFlow) Name() string { return flowRetrieveChunks }
func (f *retrievalFlow) Stage() Stage { return StageRetrieval }

func (f *retrievalFlow) Run(_ context.Context, in FlowInput) (Decision, error) {
	chunks := f.base.Retrieve(in.UserMessage, f.topK)
	return Decision{Action: ActionAllow, Chunks: chunks, Reason: fmt.Sprintf("%d chunk(s) retrieved", len(chunks))}, nil
}
