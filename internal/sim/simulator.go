package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/timedpid/internal/dynamo"
)

type Simulator struct {
	plant      dynamo.Plant
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(plant dynamo.Plant, integrator dynamo.Integrator, controller dynamo.Controller) *Simulator {
	return &Simulator{
		plant:      plant,
		integrator: integrator,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run drives the closed loop from x0 for cfg.Duration. On failure the
// partial result recorded so far is returned along with the error.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x0) != s.plant.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d entries, plant wants %d",
			dynamo.ErrDimensionMismatch, len(x0), s.plant.StateDim())
	}

	steps := cfg.Steps()
	result := &dynamo.Result{
		Times:     make([]float64, 0, steps+1),
		States:    make([]dynamo.State, 0, steps+1),
		Controls:  make([]dynamo.Control, 0, steps),
		Setpoints: make([]float64, 0, steps+1),
		Outputs:   make([]float64, 0, steps+1),
		Metrics:   make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	s.record(result, x, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)
		if f, ok := s.controller.(dynamo.Failer); ok && f.Err() != nil {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: f.Err()}
		}

		sample := dynamo.Sample{
			Time:     t,
			Dt:       dt,
			State:    x,
			Control:  u,
			Setpoint: s.setpoint(t),
			Output:   s.plant.ProcessVariable(x),
		}
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}

		newX := s.integrator.Step(s.plant, x, u, t, dt)
		if cfg.ValidateState && !newX.IsValid() {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		x = newX
		t += dt

		result.Controls = append(result.Controls, u)
		s.record(result, x, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) record(r *dynamo.Result, x dynamo.State, t float64) {
	r.Times = append(r.Times, t)
	r.States = append(r.States, x.Clone())
	r.Setpoints = append(r.Setpoints, s.setpoint(t))
	r.Outputs = append(r.Outputs, s.plant.ProcessVariable(x))
}

func (s *Simulator) setpoint(t float64) float64 {
	if sp, ok := s.controller.(dynamo.Setpointer); ok {
		return sp.Setpoint(t)
	}
	return 0
}
