// Package automation runs scripted sequences of loop configs and sweeps a
// plant parameter to check how a tuning holds up.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/internal/experiment"
	"github.com/san-kum/timedpid/internal/sim"
)

// Scenario defines a scripted simulation sequence. Each step starts from the
// base config (or a preset) and applies its own overrides on top.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Base        yaml.Node      `yaml:"base"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single step in a scenario.
type ScenarioStep struct {
	Name string `yaml:"name"`
	// Preset is "plant/preset", e.g. "heater/boiler".
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
}

// Outcome is the result of one scenario step.
type Outcome struct {
	Name   string
	Config *config.Config
	Result *dynamo.Result
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("automation: parse scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("automation: scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// StepConfig resolves the config for step i without running it.
func (s *Scenario) StepConfig(i int) (*config.Config, error) {
	step := s.Steps[i]

	cfg := config.DefaultConfig()
	if step.Preset != "" {
		plant, name, _ := strings.Cut(step.Preset, "/")
		cfg = config.GetPreset(plant, name)
		if cfg == nil {
			return nil, fmt.Errorf("step %d: unknown preset %q", i+1, step.Preset)
		}
	} else if !s.Base.IsZero() {
		if err := s.Base.Decode(cfg); err != nil {
			return nil, fmt.Errorf("step %d: base: %w", i+1, err)
		}
	}

	if !step.Config.IsZero() {
		if err := step.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("step %d: %w", i+1, err)
	}
	return cfg, nil
}

// RunScenario executes all steps in order. On failure the outcomes of the
// steps completed so far are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}

		cfg, err := scenario.StepConfig(i)
		if err != nil {
			return outcomes, err
		}
		slog.Info("scenario step", "scenario", scenario.Name, "step", name, "index", i+1, "of", len(scenario.Steps), "plant", cfg.Plant, "mode", cfg.Mode)

		exp, err := experiment.New(cfg)
		if err != nil {
			return outcomes, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return outcomes, fmt.Errorf("step %d run: %w", i+1, err)
		}

		outcomes = append(outcomes, Outcome{Name: name, Config: cfg, Result: result})
	}

	return outcomes, nil
}

// ParameterSweep reruns one loop while a plant parameter takes each value.
type ParameterSweep struct {
	Base    *config.Config
	Param   string
	Values  []float64
	Workers int
}

// SweepResult holds the outcome for one parameter value. Err is set when the
// run failed; Metrics is then nil.
type SweepResult struct {
	ParamValue float64
	FinalPV    float64
	Metrics    map[string]float64
	Err        error
}

// RunSweep executes the sweep concurrently. Failed runs are reported per
// value; only cancellation aborts the sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	plant, err := experiment.GetPlant(sweep.Base.Plant)
	if err != nil {
		return nil, err
	}
	tunable, ok := plant.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("plant %s is not tunable", sweep.Base.Plant)
	}
	if _, ok := tunable.GetParams()[sweep.Param]; !ok {
		return nil, fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrUnknownParam, sweep.Base.Plant, sweep.Param)
	}

	jobs := make([]sim.Job, len(sweep.Values))
	for i, v := range sweep.Values {
		cfg := sweep.Base.Clone()
		if cfg.PlantParams == nil {
			cfg.PlantParams = make(map[string]float64)
		}
		cfg.PlantParams[sweep.Param] = v
		jobs[i] = experiment.Job(cfg)
	}

	results, errs := sim.NewBatch(sweep.Workers).Run(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(sweep.Values))
	for i, v := range sweep.Values {
		out[i] = SweepResult{ParamValue: v, Err: errs[i]}
		if errs[i] == nil {
			out[i].FinalPV = results[i].Final()
			out[i].Metrics = results[i].Metrics
		}
	}
	return out, nil
}
