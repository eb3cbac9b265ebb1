package rails

import (
	"strings"

	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
	"github.com/openai/openai-go/option"
)

// Option configures optional runtime dependencies for Rails.
type Option func(*deps)

type deps struct {
	logger         loggerpkg.Logger
	verbose        bool
	llm            LLM
	apiKey         string
	baseURL        string
	model          string
	requestOptions []option.RequestOption
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *deps) {
		d.logger = l
	}
}

// WithVerbose enables debug logging.
func WithVerbose(v bool) Option {
	return func(d *deps) {
		d.verbose = v
	}
}

// WithLLM replaces the model backend built from the configuration.
func WithLLM(llm LLM) Option {
	return func(d *deps) {
		d.llm = llm
	}
}

// WithAPIKey sets the credential passed to the model backend.
func WithAPIKey(key string) Option {
	return func(d *deps) {
		d.apiKey = strings.TrimSpace(key)
	}
}

// WithBaseURL overrides the model endpoint.
func WithBaseURL(url string) Option {
	return func(d *deps) {
		d.baseURL = strings.TrimSpace(url)
	}
}

// WithModel overrides the main model name.
func WithModel(model string) Option {
	return func(d *deps) {
		d.model = strings.TrimSpace(model)
	}
}

// WithRequestOptions appends raw OpenAI client options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(d *deps) {
		d.requestOptions = append(d.requestOptions, opts...)
	}
}
