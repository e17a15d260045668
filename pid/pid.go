package pid

import (
	"fmt"
	"math"
)

const (
	DefaultKp = 1.0
	DefaultKi = 0.0
	DefaultKd = 0.0
)

// Gains holds the proportional, integral and derivative coefficients.
type Gains struct {
	Kp float64 `json:"kp" yaml:"kp"`
	Ki float64 `json:"ki" yaml:"ki"`
	Kd float64 `json:"kd" yaml:"kd"`
}

type Controller struct {
	clock Clock

	kp, ki, kd float64

	cmdMin, cmdMax float64
	boundRange     bool

	errorPrevious float64
	errorIntegral float64

	lastCmdTime uint32
}

type Option func(*Controller)

// WithClock sets the time source used by CmdAutoStep and Reset.
func WithClock(c Clock) Option {
	return func(p *Controller) {
		p.clock = c
	}
}

func New(kp, ki, kd float64, opts ...Option) *Controller {
	c := &Controller{}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = NewMonotonicClock()
	}
	c.SetGains(kp, ki, kd)
	c.Reset()
	return c
}

// NewDefault returns a purely proportional controller with Kp = 1.
func NewDefault(opts ...Option) *Controller {
	return New(DefaultKp, DefaultKi, DefaultKd, opts...)
}

func (c *Controller) SetGains(kp, ki, kd float64) {
	c.kp = kp
	c.ki = ki
	c.kd = kd
}

func (c *Controller) Gains() Gains {
	return Gains{Kp: c.kp, Ki: c.ki, Kd: c.kd}
}

// SetCmdRange bounds every subsequent command to [cmdMin, cmdMax].
// There is no way to remove the bound once set.
func (c *Controller) SetCmdRange(cmdMin, cmdMax float64) {
	c.cmdMin = cmdMin
	c.cmdMax = cmdMax
	c.boundRange = true
}

func (c *Controller) CmdRange() (cmdMin, cmdMax float64, ok bool) {
	return c.cmdMin, c.cmdMax, c.boundRange
}

// Reset clears the error terms and restamps the last command time.
// Gains and the command range are kept.
func (c *Controller) Reset() {
	c.errorPrevious = 0
	c.errorIntegral = 0
	c.lastCmdTime = c.clock.Micros()
}

func (c *Controller) ErrorPrevious() float64 { return c.errorPrevious }
func (c *Controller) ErrorIntegral() float64 { return c.errorIntegral }
func (c *Controller) LastCmdTime() uint32    { return c.lastCmdTime }

// Cmd computes a command assuming a time step of 1.
func (c *Controller) Cmd(setPoint, procVar float64) float64 {
	err := setPoint - procVar
	c.errorIntegral += err
	errorDerivative := err - c.errorPrevious

	c.errorPrevious = err

	return c.boundCmd(c.kp*err + c.ki*c.errorIntegral + c.kd*errorDerivative)
}

// CmdStep computes a command over timeStep seconds using trapezoidal
// integration and a backward-difference derivative. timeStep is not
// validated: zero produces a non-finite derivative and a negative value
// inverts both the integral contribution and the derivative.
func (c *Controller) CmdStep(setPoint, procVar, timeStep float64) float64 {
	err := setPoint - procVar
	c.errorIntegral += (err + c.errorPrevious) / 2 * timeStep
	errorDerivative := (err - c.errorPrevious) / timeStep

	c.errorPrevious = err

	return c.boundCmd(c.kp*err + c.ki*c.errorIntegral + c.kd*errorDerivative)
}

// CmdAutoStep computes a command over the time elapsed since the previous
// CmdAutoStep call, or since construction or Reset for the first one.
func (c *Controller) CmdAutoStep(setPoint, procVar float64) float64 {
	now := c.clock.Micros()
	elapsed := now - c.lastCmdTime

	c.lastCmdTime = now

	return c.CmdStep(setPoint, procVar, microsToSeconds(elapsed))
}

// CmdStepChecked behaves like CmdStep but refuses a non-positive or
// non-finite timeStep without touching the controller state, and reports a
// non-finite command.
func (c *Controller) CmdStepChecked(setPoint, procVar, timeStep float64) (float64, error) {
	if err := checkStep(timeStep); err != nil {
		return 0, err
	}
	cmd := c.CmdStep(setPoint, procVar, timeStep)
	if math.IsNaN(cmd) || math.IsInf(cmd, 0) {
		return cmd, fmt.Errorf("%w: %v", ErrNonFinite, cmd)
	}
	return cmd, nil
}

// CmdAutoStepChecked behaves like CmdAutoStep but returns ErrZeroTimeStep
// when no clock tick has elapsed. In that case the last command time is
// left as it was, so the next call measures the full interval.
func (c *Controller) CmdAutoStepChecked(setPoint, procVar float64) (float64, error) {
	now := c.clock.Micros()
	elapsed := now - c.lastCmdTime
	if elapsed == 0 {
		return 0, ErrZeroTimeStep
	}

	c.lastCmdTime = now

	return c.CmdStepChecked(setPoint, procVar, microsToSeconds(elapsed))
}

// Params returns the tunable gains for live adjustment.
func (c *Controller) Params() map[string]float64 {
	return map[string]float64{
		"Kp": c.kp,
		"Ki": c.ki,
		"Kd": c.kd,
	}
}

func (c *Controller) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		c.kp = value
	case "Ki":
		c.ki = value
	case "Kd":
		c.kd = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return nil
}

func (c *Controller) boundCmd(cmd float64) float64 {
	if !c.boundRange {
		return cmd
	}
	return clamp(cmd, c.cmdMin, c.cmdMax)
}

// clamp tests the lower bound first. With lo > hi every value maps to one
// of the two bounds.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func checkStep(timeStep float64) error {
	switch {
	case math.IsNaN(timeStep) || math.IsInf(timeStep, 0):
		return fmt.Errorf("%w: time step %v", ErrNonFinite, timeStep)
	case timeStep == 0:
		return ErrZeroTimeStep
	case timeStep < 0:
		return ErrNegativeTimeStep
	}
	return nil
}

func microsToSeconds(us uint32) float64 {
	return float64(us) / 1e6
}
