package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Plant is a System with a single measured output.
type Plant interface {
	System
	ProcessVariable(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Setpointer is implemented by controllers that track a reference signal.
type Setpointer interface {
	Setpoint(t float64) float64
}

// Failer is implemented by controllers that can refuse to produce a command.
// A non-nil Err after Compute aborts the run.
type Failer interface {
	Err() error
}

// Sample is what metrics and observers see at each step.
type Sample struct {
	Time     float64
	Dt       float64
	State    State
	Control  Control
	Setpoint float64
	Output   float64
}

// Error returns setpoint minus process variable.
func (s Sample) Error() float64 {
	return s.Setpoint - s.Output
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, c.Duration)
	}
	return nil
}

// Steps is the number of control periods in the run.
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

type Result struct {
	Times     []float64
	States    []State
	Controls  []Control
	Setpoints []float64
	Outputs   []float64
	Metrics   map[string]float64
}

// Final returns the last recorded process variable.
func (r *Result) Final() float64 {
	if len(r.Outputs) == 0 {
		return math.NaN()
	}
	return r.Outputs[len(r.Outputs)-1]
}
