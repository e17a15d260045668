// Package experiment assembles a plant, integrator and controller from a
// config.Config and runs them.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/internal/integrators"
	"github.com/san-kum/timedpid/internal/metrics"
	"github.com/san-kum/timedpid/internal/sim"
)

type Experiment struct {
	cfg        *config.Config
	plant      dynamo.Plant
	controller dynamo.Controller
	loop       *control.Loop
	simulator  *sim.Simulator
}

// New validates cfg and wires a fresh simulator with the default metrics.
// The config is copied; later changes to cfg do not affect the experiment.
func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	plant, err := GetPlant(cfg.Plant)
	if err != nil {
		return nil, err
	}
	if err := ApplyPlantParams(plant, cfg.PlantParams); err != nil {
		return nil, err
	}
	integ, err := integrators.Get(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg, plant: plant}
	if cfg.OpenLoop() {
		e.controller = control.NewNone(plant.ControlDim(), 0)
	} else {
		loop, err := control.NewLoop(cfg.LoopConfig(), plant.ProcessVariable)
		if err != nil {
			return nil, err
		}
		e.loop = loop
		e.controller = loop
	}

	e.simulator = sim.New(plant, integ, e.controller)
	for _, m := range metrics.Default(cfg.CmdRange) {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

// ApplyPlantParams sets each named parameter on plant.
func ApplyPlantParams(plant dynamo.Plant, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := plant.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("plant has no tunable parameters")
	}
	for k, v := range params {
		if err := c.SetParam(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.simulator.Run(ctx, e.cfg.GetInitState(), e.cfg.SimConfig())
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Plant() dynamo.Plant { return e.plant }

// Loop returns the closed-loop controller, or nil for an open-loop run.
func (e *Experiment) Loop() *control.Loop { return e.loop }

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Job adapts cfg into a batch job that builds and runs its own experiment.
func Job(cfg *config.Config) sim.Job {
	return func(ctx context.Context) (*dynamo.Result, error) {
		e, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return e.Run(ctx)
	}
}
