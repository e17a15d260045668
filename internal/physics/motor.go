package physics

import (
	"fmt"

	"github.com/san-kum/timedpid/internal/dynamo"
)

const (
	DefaultInertia     = 0.01
	DefaultFriction    = 0.1
	DefaultTorqueConst = 0.01
	DefaultResistance  = 1.0
	DefaultInductance  = 0.5
)

// Motor is an armature-controlled DC motor. State is [omega, current],
// the command is the armature voltage and the shaft speed is measured.
type Motor struct {
	Inertia     float64 // J
	Friction    float64 // b
	TorqueConst float64 // K, used for both torque and back-EMF
	Resistance  float64 // R
	Inductance  float64 // L
}

func NewMotor() *Motor {
	return &Motor{
		Inertia:     DefaultInertia,
		Friction:    DefaultFriction,
		TorqueConst: DefaultTorqueConst,
		Resistance:  DefaultResistance,
		Inductance:  DefaultInductance,
	}
}

func (m *Motor) StateDim() int   { return 2 }
func (m *Motor) ControlDim() int { return 1 }

func (m *Motor) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	omega, current := x[0], x[1]

	voltage := 0.0
	if len(u) > 0 {
		voltage = u[0]
	}

	dOmega := (m.TorqueConst*current - m.Friction*omega) / m.Inertia
	dCurrent := (voltage - m.Resistance*current - m.TorqueConst*omega) / m.Inductance
	return dynamo.State{dOmega, dCurrent}
}

func (m *Motor) ProcessVariable(x dynamo.State) float64 {
	return x[0]
}

func (m *Motor) GetParams() map[string]float64 {
	return map[string]float64{
		"inertia":      m.Inertia,
		"friction":     m.Friction,
		"torque_const": m.TorqueConst,
		"resistance":   m.Resistance,
		"inductance":   m.Inductance,
	}
}

func (m *Motor) SetParam(name string, value float64) error {
	switch name {
	case "inertia":
		m.Inertia = value
	case "friction":
		m.Friction = value
	case "torque_const":
		m.TorqueConst = value
	case "resistance":
		m.Resistance = value
	case "inductance":
		m.Inductance = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
