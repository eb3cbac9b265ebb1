package rails

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	// ModelTypeMain identifies the model that answers the user.
	ModelTypeMain = "main"
	// EngineOpenAI is the only supported model engine.
	EngineOpenAI = "openai"

	// TaskSelfCheckInput and TaskSelfCheckOutput name the self-check prompts.
	TaskSelfCheckInput  = "self_check_input"
	TaskSelfCheckOutput = "self_check_output"

	// SensitiveActionMask replaces detected entities; SensitiveActionBlock refuses.
	SensitiveActionMask  = "mask"
	SensitiveActionBlock = "block"

	DefaultRefusalMessage = "I'm sorry, I can't respond to that."
	DefaultTopK           = 3
)

// Config is a guardrails configuration bundle.
type Config struct {
	Models             []ModelConfig       `yaml:"models"`
	Instructions       []Instruction       `yaml:"instructions"`
	SampleConversation string              `yaml:"sample_conversation"`
	Rails              RailsSection        `yaml:"rails"`
	Prompts            []TaskPrompt        `yaml:"prompts"`
	KnowledgeBase      KnowledgeBaseConfig `yaml:"knowledge_base"`
	RefusalMessage     string              `yaml:"refusal_message"`

	// SourcePath is the file the configuration was read from, if any.
	SourcePath string `yaml:"-"`
	baseDir    string
}

// ModelConfig describes one model used by the rails.
type ModelConfig struct {
	Type       string          `yaml:"type"`
	Engine     string          `yaml:"engine"`
	Model      string          `yaml:"model"`
	Parameters ModelParameters `yaml:"parameters"`
}

// ModelParameters are optional generation settings.
type ModelParameters struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int64    `yaml:"max_tokens"`
	BaseURL     string   `yaml:"base_url"`
}

// Instruction is a block of system guidance.
type Instruction struct {
	Type    string `yaml:"type"`
	Content string `yaml:"content"`
}

// RailsSection lists the flows per stage plus their settings.
type RailsSection struct {
	Input     FlowList    `yaml:"input"`
	Retrieval FlowList    `yaml:"retrieval"`
	Output    FlowList    `yaml:"output"`
	Config    RailsConfig `yaml:"config"`
}

// FlowList is an ordered list of flow names.
type FlowList struct {
	Flows []string `yaml:"flows"`
}

// RailsConfig holds per-flow settings.
type RailsConfig struct {
	JailbreakDetection JailbreakConfig     `yaml:"jailbreak_detection"`
	SensitiveData      SensitiveDataConfig `yaml:"sensitive_data_detection"`
	Topics             TopicsConfig        `yaml:"topics"`
}

// JailbreakConfig adds patterns to the built-in jailbreak heuristics.
type JailbreakConfig struct {
	Patterns []string `yaml:"patterns"`
}

// SensitiveDataConfig configures PII handling per direction.
type SensitiveDataConfig struct {
	Input  SensitiveDataRule `yaml:"input"`
	Output SensitiveDataRule `yaml:"output"`
}

// SensitiveDataRule selects entities and what to do when they are found.
type SensitiveDataRule struct {
	Entities []string `yaml:"entities"`
	Action   string   `yaml:"action"`
}

// TopicsConfig restricts the conversation to a keyword allow-list.
type TopicsConfig struct {
	Allowed []string `yaml:"allowed"`
	Refusal string   `yaml:"refusal"`
}

// TaskPrompt is a prompt template for an internal task.
type TaskPrompt struct {
	Task    string `yaml:"task"`
	Content string `yaml:"content"`
}

// KnowledgeBaseConfig points at the documents used for retrieval.
type KnowledgeBaseConfig struct {
	Path string `yaml:"path"`
	TopK int    `yaml:"top_k"`
}

// FromPath loads a configuration bundle. A directory resolves to the
// config.yml (or config.yaml) it contains.
func FromPath(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: config path is empty", ErrInvalidConfig)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if info.IsDir() {
		resolved := ""
		for _, name := range []string{"config.yml", "config.yaml"} {
			candidate := filepath.Join(path, name)
			if st, err := os.Stat(candidate); err == nil && st.Mode().IsRegular() {
				resolved = candidate
				break
			}
		}
		if resolved == "" {
			return nil, fmt.Errorf("%w: no config.yml in directory %s", ErrInvalidConfig, path)
		}
		path = resolved
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}
	cfg, err := FromYAML(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.SourcePath = path
	return cfg, nil
}

// FromYAML parses and validates configuration content. Relative paths inside
// the configuration are resolved against baseDir.
func FromYAML(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: configuration is empty", ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.baseDir = baseDir
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Models {
		c.Models[i].Type = strings.TrimSpace(c.Models[i].Type)
		c.Models[i].Engine = strings.ToLower(strings.TrimSpace(c.Models[i].Engine))
		c.Models[i].Model = strings.TrimSpace(c.Models[i].Model)
		if c.Models[i].Engine == "" {
			c.Models[i].Engine = EngineOpenAI
		}
	}
	if strings.TrimSpace(c.RefusalMessage) == "" {
		c.RefusalMessage = DefaultRefusalMessage
	}
	if c.KnowledgeBase.TopK <= 0 {
		c.KnowledgeBase.TopK = DefaultTopK
	}
	for _, rule := range []*SensitiveDataRule{&c.Rails.Config.SensitiveData.Input, &c.Rails.Config.SensitiveData.Output} {
		rule.Action = strings.ToLower(strings.TrimSpace(rule.Action))
		if rule.Action == "" {
			rule.Action = SensitiveActionMask
		}
	}
}

func (c *Config) validate() error {
	mains := 0
	for _, m := range c.Models {
		if m.Type != ModelTypeMain {
			continue
		}
		mains++
		if m.Engine != EngineOpenAI {
			return fmt.Errorf("%w: unsupported engine %q for main model", ErrInvalidConfig, m.Engine)
		}
	}
	if mains != 1 {
		return fmt.Errorf("%w: expected exactly one main model, got %d", ErrInvalidConfig, mains)
	}

	seen := map[string]struct{}{}
	for stage, flows := range c.flowsByStage() {
		for _, name := range flows {
			entry, ok := builtinFlows[name]
			if !ok {
				return fmt.Errorf("%w: unknown %s flow %q", ErrInvalidConfig, stage, name)
			}
			if entry.stage != stage {
				return fmt.Errorf("%w: flow %q cannot run as a %s rail", ErrInvalidConfig, name, stage)
			}
			if _, dup := seen[name]; dup {
				return fmt.Errorf("%w: flow %q listed twice", ErrInvalidConfig, name)
			}
			seen[name] = struct{}{}
		}
	}

	if _, ok := seen[flowSelfCheckInput]; ok {
		if err := c.checkPrompt(TaskSelfCheckInput); err != nil {
			return err
		}
	}
	if _, ok := seen[flowSelfCheckOutput]; ok {
		if err := c.checkPrompt(TaskSelfCheckOutput); err != nil {
			return err
		}
	}
	if _, ok := seen[flowRetrieveChunks]; ok && strings.TrimSpace(c.KnowledgeBase.Path) == "" {
		return fmt.Errorf("%w: flow %q requires knowledge_base.path", ErrInvalidConfig, flowRetrieveChunks)
	}

	for _, p := range c.Rails.Config.JailbreakDetection.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: jailbreak pattern %q: %v", ErrInvalidConfig, p, err)
		}
	}
	for _, rule := range []SensitiveDataRule{c.Rails.Config.SensitiveData.Input, c.Rails.Config.SensitiveData.Output} {
		if rule.Action != SensitiveActionMask && rule.Action != SensitiveActionBlock {
			return fmt.Errorf("%w: sensitive data action must be mask or block, got %q", ErrInvalidConfig, rule.Action)
		}
		if _, err := piiPatternsFor(rule.Entities); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *Config) checkPrompt(task string) error {
	content, ok := c.Prompt(task)
	if !ok {
		return fmt.Errorf("%w: missing prompt for task %q", ErrInvalidConfig, task)
	}
	if _, err := template.New(task).Option("missingkey=zero").Parse(content); err != nil {
		return fmt.Errorf("%w: prompt %q: %v", ErrInvalidConfig, task, err)
	}
	return nil
}

func (c *Config) flowsByStage() map[Stage][]string {
	return map[Stage][]string{
		StageInput:     c.Rails.Input.Flows,
		StageRetrieval: c.Rails.Retrieval.Flows,
		StageOutput:    c.Rails.Output.Flows,
	}
}

// MainModel returns the model that answers the user.
func (c *Config) MainModel() (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.Type == ModelTypeMain {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// Prompt returns the non-empty prompt template configured for task.
func (c *Config) Prompt(task string) (string, bool) {
	for _, p := range c.Prompts {
		if p.Task == task && strings.TrimSpace(p.Content) != "" {
			return p.Content, true
		}
	}
	return "", false
}

// KnowledgeBaseDir returns the knowledge base directory resolved against the
// configuration file location.
func (c *Config) KnowledgeBaseDir() string {
	dir := strings.TrimSpace(c.KnowledgeBase.Path)
	if dir == "" || filepath.IsAbs(dir) || c.baseDir == "" {
		return dir
	}
	return filepath.Join(c.baseDir, dir)
}

// GeneralInstructions joins the content of all general instructions.
func (c *Config) GeneralInstructions() string {
	parts := make([]string, 0, len(c.Instructions))
	for _, in := range c.Instructions {
		if in.Type != "" && in.Type != "general" {
			continue
		}
		if text := strings.TrimSpace(in.Content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
