package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/pid"
)

const (
	DefaultPlant      = "heater"
	DefaultIntegrator = "rk4"
	DefaultController = "pid"
	DefaultMode       = "step"
	DefaultDt         = 0.1
	DefaultDuration   = 300.0
	DefaultSetpoint   = 60.0
	DefaultInitValue  = 20.0
	DefaultKp         = 0.5
	DefaultKi         = 0.02
	DefaultKd         = 0.0
)

type Config struct {
	Plant      string           `yaml:"plant" validate:"required,oneof=heater spring_mass motor"`
	Integrator string           `yaml:"integrator" validate:"required,oneof=euler rk4"`
	Controller string           `yaml:"controller,omitempty" validate:"omitempty,oneof=pid none"`
	Mode       string           `yaml:"mode" validate:"required,oneof=unit step auto"`
	Strict     bool             `yaml:"strict"`
	Dt         float64          `yaml:"dt" validate:"gt=0"`
	Duration   float64          `yaml:"duration" validate:"gt=0,gtefield=Dt"`
	Gains      pid.Gains        `yaml:"gains"`
	CmdRange   *control.Range   `yaml:"cmd_range"`
	Setpoint   control.Schedule `yaml:"setpoint"`
	InitState  InitStateConfig  `yaml:"init_state"`
	// PlantParams overrides plant parameters by name, e.g. "loss" for the heater.
	PlantParams map[string]float64 `yaml:"plant_params,omitempty"`
}

// InitStateConfig holds the measured value and its rate of change at t = 0.
type InitStateConfig struct {
	Value float64 `yaml:"value"`
	Rate  float64 `yaml:"rate"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func DefaultConfig() *Config {
	return &Config{
		Plant:      DefaultPlant,
		Integrator: DefaultIntegrator,
		Controller: DefaultController,
		Mode:       DefaultMode,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Gains: pid.Gains{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
		CmdRange:  &control.Range{Min: 0, Max: 5},
		Setpoint:  control.Constant(DefaultSetpoint),
		InitState: InitStateConfig{Value: DefaultInitValue},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks field constraints. The command range is deliberately not
// checked for ordering; the controller accepts an inverted range.
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.CmdRange != nil {
		r := *c.CmdRange
		cp.CmdRange = &r
	}
	if c.PlantParams != nil {
		cp.PlantParams = make(map[string]float64, len(c.PlantParams))
		for k, v := range c.PlantParams {
			cp.PlantParams[k] = v
		}
	}
	return &cp
}

func (c *Config) GetInitState() dynamo.State {
	switch c.Plant {
	case "heater":
		return dynamo.State{c.InitState.Value}
	case "motor":
		return dynamo.State{c.InitState.Value, 0}
	default:
		return dynamo.State{c.InitState.Value, c.InitState.Rate}
	}
}

// OpenLoop reports whether the run holds the command at zero instead of
// closing the loop. An empty controller means pid.
func (c *Config) OpenLoop() bool {
	return c.Controller == "none"
}

func (c *Config) LoopConfig() control.LoopConfig {
	return control.LoopConfig{
		Gains:    c.Gains,
		CmdRange: c.CmdRange,
		Mode:     control.Mode(c.Mode),
		Dt:       c.Dt,
		Setpoint: c.Setpoint,
		Strict:   c.Strict,
	}
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		ValidateState: true,
	}
}
