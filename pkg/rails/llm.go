package rails

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// LLM completes a conversation with a single assistant message.
type LLM interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// openAILLM is the LLM backed by the OpenAI chat completions API.
type openAILLM struct {
	client      openai.Client
	model       string
	temperature *float64
	maxTokens   int64
}

type openAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   int64
	Extra       []option.RequestOption
}

func newOpenAILLM(opts openAIOptions) (*openAILLM, error) {
	if opts.Model == "" {
		return nil, errors.New("Model is not set")
	}
	reqOpts := []option.RequestOption{}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	reqOpts = append(reqOpts, opts.Extra...)
	return &openAILLM{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

// Complete sends one non-streaming chat completion request.
func (l *openAILLM) Complete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(l.model),
		Messages: toOpenAIMessages(messages),
	}
	if l.temperature != nil {
		params.Temperature = openai.Float(*l.temperature)
	}
	if l.maxTokens > 0 {
		params.MaxTokens = openai.Int(l.maxTokens)
	}

	completion, err := l.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty completion choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// buildLLM creates the backend for the main model of cfg.
func buildLLM(cfg *Config, d deps) (LLM, error) {
	mainModel, ok := cfg.MainModel()
	if !ok {
		return nil, fmt.Errorf("%w: no main model", ErrInvalidConfig)
	}
	switch mainModel.Engine {
	case EngineOpenAI:
		model := mainModel.Model
		if d.model != "" {
			model = d.model
		}
		baseURL := mainModel.Parameters.BaseURL
		if d.baseURL != "" {
			baseURL = d.baseURL
		}
		llm, err := newOpenAILLM(openAIOptions{
			APIKey:      d.apiKey,
			BaseURL:     baseURL,
			Model:       model,
			Temperature: mainModel.Parameters.Temperature,
			MaxTokens:   mainModel.Parameters.MaxTokens,
			Extra:       d.requestOptions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("%w: unsupported engine %q", ErrInvalidConfig, mainModel.Engine)
	}
}
