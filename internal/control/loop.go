package control

import (
	"errors"
	"fmt"

	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/pid"
)

// Mode selects which pid command variant the loop calls each period.
type Mode string

const (
	ModeUnit Mode = "unit"
	ModeStep Mode = "step"
	ModeAuto Mode = "auto"
)

var ErrUnknownMode = errors.New("control: unknown mode")

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeUnit, ModeStep, ModeAuto:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want unit, step or auto)", ErrUnknownMode, s)
}

type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

type LoopConfig struct {
	Gains    pid.Gains
	CmdRange *Range
	Mode     Mode
	Dt       float64
	Setpoint Schedule
	// Strict uses the checked pid variants and stops at the first bad step.
	Strict bool
}

// Loop runs a pid.Controller against a plant inside the simulator.
type Loop struct {
	cfg     LoopConfig
	pid     *pid.Controller
	clock   *SimClock
	measure func(dynamo.State) float64
	last    float64
	err     error
}

// NewLoop builds the controller. measure extracts the process variable from
// the plant state, usually a Plant's ProcessVariable method.
func NewLoop(cfg LoopConfig, measure func(dynamo.State) float64) (*Loop, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}

	// The controller is created one period before the first sample, so the
	// first auto step covers Dt rather than zero.
	clock := NewSimClock(-cfg.Dt)
	c := pid.New(cfg.Gains.Kp, cfg.Gains.Ki, cfg.Gains.Kd, pid.WithClock(clock))
	if cfg.CmdRange != nil {
		c.SetCmdRange(cfg.CmdRange.Min, cfg.CmdRange.Max)
	}

	return &Loop{
		cfg:     cfg,
		pid:     c,
		clock:   clock,
		measure: measure,
	}, nil
}

func (l *Loop) Compute(x dynamo.State, t float64) dynamo.Control {
	sp := l.cfg.Setpoint.Value(t)
	pv := l.measure(x)

	var (
		cmd float64
		err error
	)
	switch l.cfg.Mode {
	case ModeUnit:
		cmd = l.pid.Cmd(sp, pv)
	case ModeStep:
		if l.cfg.Strict {
			cmd, err = l.pid.CmdStepChecked(sp, pv, l.cfg.Dt)
		} else {
			cmd = l.pid.CmdStep(sp, pv, l.cfg.Dt)
		}
	case ModeAuto:
		l.clock.Set(t)
		if l.cfg.Strict {
			cmd, err = l.pid.CmdAutoStepChecked(sp, pv)
		} else {
			cmd = l.pid.CmdAutoStep(sp, pv)
		}
	}

	if err != nil {
		if l.err == nil {
			l.err = fmt.Errorf("control: %s step at t=%.4f: %w", l.cfg.Mode, t, err)
		}
		cmd = l.last
	}
	l.last = cmd

	return dynamo.Control{cmd}
}

// Err returns the first error seen in strict mode.
func (l *Loop) Err() error {
	return l.err
}

func (l *Loop) Setpoint(t float64) float64 {
	return l.cfg.Setpoint.Value(t)
}

// Schedule returns the setpoint schedule currently in force.
func (l *Loop) Schedule() Schedule {
	return l.cfg.Setpoint
}

func (l *Loop) SetSchedule(s Schedule) {
	l.cfg.Setpoint = s
}

func (l *Loop) Mode() Mode {
	return l.cfg.Mode
}

// Controller exposes the wrapped pid controller.
func (l *Loop) Controller() *pid.Controller {
	return l.pid
}

// Reset rewinds the loop to just before t = 0, keeping gains and range.
func (l *Loop) Reset() {
	l.clock.Set(-l.cfg.Dt)
	l.pid.Reset()
	l.last = 0
	l.err = nil
}

// GetParams returns tunable parameters for live adjustment.
func (l *Loop) GetParams() map[string]float64 {
	params := l.pid.Params()
	params["Target"] = l.cfg.Setpoint.Final
	return params
}

// SetParam adjusts a gain, or with "Target" replaces the setpoint by a constant.
func (l *Loop) SetParam(name string, value float64) error {
	if name == "Target" {
		l.cfg.Setpoint = Constant(value)
		return nil
	}
	if err := l.pid.SetParam(name, value); err != nil {
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
