package rails

import (
	"fmt"

	"github.com/minhyannv/guardrails-demo-go/pkg/kb"
	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
)

// flowEnv carries what built-in flows may need at construction time.
type flowEnv struct {
	cfg     *Config
	llm     LLM
	kb      *kb.Base
	logger  loggerpkg.Logger
	verbose bool
}

type flowBuilder func(env flowEnv) (Flow, error)

type flowEntry struct {
	stage Stage
	build flowBuilder
}

var builtinFlows = map[string]flowEntry{
	flowJailbreakHeuristics: {stage: StageInput, build: newJailbreakFlow},
	flowMaskInput:           {stage: StageInput, build: newSensitiveDataFlow(StageInput)},
	flowCheckTopic:          {stage: StageInput, build: newTopicFlow},
	flowSelfCheckInput:      {stage: StageInput, build: newSelfCheckFlow(StageInput)},
	flowRetrieveChunks:      {stage: StageRetrieval, build: newRetrievalFlow},
	flowSelfCheckOutput:     {stage: StageOutput, build: newSelfCheckFlow(StageOutput)},
	flowMaskOutput:          {stage: StageOutput, build: newSensitiveDataFlow(StageOutput)},
}

// registry holds the configured flows per stage in execution order.
type registry struct {
	byStage map[Stage][]Flow
	env     flowEnv
}

func newRegistry(env flowEnv) (*registry, error) {
	r := &registry{
		byStage: make(map[Stage][]Flow),
		env:     env,
	}
	for _, stage := range []Stage{StageInput, StageRetrieval, StageOutput} {
		for _, name := range env.cfg.flowsByStage()[stage] {
			entry, ok := builtinFlows[name]
			if !ok {
				return nil, fmt.Errorf("%w: unknown %s flow %q", ErrInvalidConfig, stage, name)
			}
			flow, err := entry.build(env)
			if err != nil {
				return nil, fmt.Errorf("%w: build flow %q: %v", ErrInvalidConfig, name, err)
			}
			r.register(flow)
		}
	}
	return r, nil
}

func (r *registry) register(flow Flow) {
	r.byStage[flow.Stage()] = append(r.byStage[flow.Stage()], flow)
	loggerpkg.Debug(r.env.verbose, r.env.logger, "flow registered", map[string]any{
		"flow":  flow.Name(),
		"stage": flow.Stage(),
	})
}

func (r *registry) stage(s Stage) []Flow {
	return r.byStage[s]
}

// FlowNames lists the built-in flow names available to configuration bundles,
// in pipeline order.
func FlowNames() []string {
	return []string{
		flowJailbreakHeuristics,
		flowMaskInput,
		flowCheckTopic,
		flowSelfCheckInput,
		flowRetrieveChunks,
		flowSelfCheckOutput,
		flowMaskOutput,
	}
}
