package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/control"
)

var (
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	mode       string
	strict     bool
	controller string
	kp         float64
	ki         float64
	kd         float64
	setpoint   float64
	stepTo     float64
	stepAt     float64
	cmdMin     float64
	cmdMax     float64
	unbounded  bool
	initValue  float64
	initRate   float64
	showPlot   bool
	outPath    string
)

func addLoopFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", config.DefaultDt, "control period in seconds")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4)")
	f.StringVar(&mode, "mode", config.DefaultMode, "command variant (unit, step, auto)")
	f.BoolVar(&strict, "strict", false, "stop at the first zero or negative time step")
	f.StringVar(&controller, "controller", config.DefaultController, "controller (pid, none)")
	f.Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	f.Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	f.Float64Var(&kd, "kd", config.DefaultKd, "derivative gain")
	f.Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "setpoint")
	f.Float64Var(&stepTo, "step-to", 0, "setpoint after --step-at")
	f.Float64Var(&stepAt, "step-at", 0, "time of the setpoint step")
	f.Float64Var(&cmdMin, "cmd-min", 0, "lower command bound")
	f.Float64Var(&cmdMax, "cmd-max", 0, "upper command bound")
	f.BoolVar(&unbounded, "unbounded", false, "drop the command range")
	f.Float64Var(&initValue, "init", config.DefaultInitValue, "initial process variable")
	f.Float64Var(&initRate, "init-rate", 0, "initial rate of change (spring_mass)")
	cmd.MarkFlagsMutuallyExclusive("config", "preset")
}

// resolveConfig layers the sources: the plant's default preset, then a named
// preset or config file, then any flag set on the command line.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	plant := config.DefaultPlant
	if len(args) > 0 {
		plant = args[0]
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case configFile != "":
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			cfg.Plant = plant
		}
	case preset != "":
		cfg = config.GetPreset(plant, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(plant))
		}
	default:
		cfg, err = config.ForPlant(plant)
		if err != nil {
			return nil, err
		}
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("resolved config",
		"plant", cfg.Plant,
		"mode", cfg.Mode,
		"dt", cfg.Dt,
		"duration", cfg.Duration,
		"gains", cfg.Gains,
		"strict", cfg.Strict,
	)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("dt") {
		cfg.Dt = dt
	}
	if changed("time") {
		cfg.Duration = duration
	}
	if changed("integrator") {
		cfg.Integrator = integrator
	}
	if changed("mode") {
		cfg.Mode = mode
	}
	if changed("strict") {
		cfg.Strict = strict
	}
	if changed("controller") {
		cfg.Controller = controller
	}
	if changed("kp") {
		cfg.Gains.Kp = kp
	}
	if changed("ki") {
		cfg.Gains.Ki = ki
	}
	if changed("kd") {
		cfg.Gains.Kd = kd
	}
	if changed("setpoint") {
		cfg.Setpoint = control.Constant(setpoint)
	}
	if changed("step-at") || changed("step-to") {
		initial := cfg.Setpoint.Initial
		if changed("setpoint") {
			initial = setpoint
		}
		cfg.Setpoint = control.Step(initial, stepTo, stepAt)
	}
	if changed("cmd-min") || changed("cmd-max") {
		rng := control.Range{Min: cmdMin, Max: cmdMax}
		if cfg.CmdRange != nil {
			if !changed("cmd-min") {
				rng.Min = cfg.CmdRange.Min
			}
			if !changed("cmd-max") {
				rng.Max = cfg.CmdRange.Max
			}
		}
		cfg.CmdRange = &rng
	}
	if changed("unbounded") && unbounded {
		cfg.CmdRange = nil
	}
	if changed("init") {
		cfg.InitState.Value = initValue
	}
	if changed("init-rate") {
		cfg.InitState.Rate = initRate
	}
}
