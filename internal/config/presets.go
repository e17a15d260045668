package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/pid"
)

var Presets = map[string]map[string]*Config{
	"heater": {
		"boiler": {
			Plant: "heater", Integrator: "rk4", Mode: "step", Dt: 0.5, Duration: 600,
			Gains:     pid.Gains{Kp: 0.5, Ki: 0.02},
			CmdRange:  &control.Range{Min: 0, Max: 5},
			Setpoint:  control.Constant(60),
			InitState: InitStateConfig{Value: 20},
		},
		"reheat": {
			Plant: "heater", Integrator: "rk4", Mode: "auto", Dt: 0.5, Duration: 900,
			Gains:     pid.Gains{Kp: 0.5, Ki: 0.02},
			CmdRange:  &control.Range{Min: 0, Max: 5},
			Setpoint:  control.Step(40, 70, 300),
			InitState: InitStateConfig{Value: 20},
		},
		"unit": {
			Plant: "heater", Integrator: "euler", Mode: "unit", Dt: 1, Duration: 600,
			Gains:     pid.Gains{Kp: 0.5, Ki: 0.02},
			CmdRange:  &control.Range{Min: 0, Max: 5},
			Setpoint:  control.Constant(60),
			InitState: InitStateConfig{Value: 20},
		},
	},
	"spring_mass": {
		"position": {
			Plant: "spring_mass", Integrator: "rk4", Mode: "step", Dt: 0.01, Duration: 10,
			Gains:    pid.Gains{Kp: 30, Ki: 20, Kd: 3},
			CmdRange: &control.Range{Min: -50, Max: 50},
			Setpoint: control.Constant(1),
		},
		"release": {
			Plant: "spring_mass", Integrator: "rk4", Mode: "auto", Dt: 0.01, Duration: 10,
			Gains:     pid.Gains{Kp: 30, Ki: 20, Kd: 3},
			Setpoint:  control.Constant(0),
			InitState: InitStateConfig{Value: 2},
		},
	},
	"motor": {
		"speed": {
			Plant: "motor", Integrator: "rk4", Mode: "step", Dt: 0.001, Duration: 2,
			Gains:    pid.Gains{Kp: 100, Ki: 200, Kd: 10},
			Setpoint: control.Constant(1),
		},
		"speed-limited": {
			Plant: "motor", Integrator: "rk4", Mode: "auto", Dt: 0.001, Duration: 2,
			Gains:    pid.Gains{Kp: 100, Ki: 200, Kd: 10},
			CmdRange: &control.Range{Min: -24, Max: 24},
			Setpoint: control.Step(0.5, 1, 1),
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(plant, preset string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultPresets names the preset used when a plant is chosen without one.
var defaultPresets = map[string]string{
	"heater":      "boiler",
	"spring_mass": "position",
	"motor":       "speed",
}

// ForPlant returns the plant's default preset.
func ForPlant(plant string) (*Config, error) {
	name, ok := defaultPresets[plant]
	if !ok {
		return nil, fmt.Errorf("config: unknown plant %q", plant)
	}
	return GetPreset(plant, name), nil
}
