package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	a := State{1, 2}
	b := a.Clone()
	b[0] = 9
	if a[0] != 1 {
		t.Errorf("clone shares storage: %v", a)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"zero dt", Config{Dt: 0, Duration: 1}, false},
		{"negative dt", Config{Dt: -0.1, Duration: 1}, false},
		{"zero duration", Config{Dt: 0.1, Duration: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfig_Steps(t *testing.T) {
	cfg := Config{Dt: 0.1, Duration: 1.0}
	if got := cfg.Steps(); got != 10 {
		t.Errorf("expected 10 steps, got %d", got)
	}
}

func TestSample_Error(t *testing.T) {
	s := Sample{Setpoint: 5, Output: 3.5}
	if s.Error() != 1.5 {
		t.Errorf("expected error 1.5, got %f", s.Error())
	}
}

func TestSimulationError_Unwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.3, Wrapped: ErrInvalidState}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("expected SimulationError to unwrap to ErrInvalidState")
	}
	if err.Error() == "" {
		t.Error("expected a message")
	}
}
