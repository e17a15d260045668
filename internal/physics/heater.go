package physics

import (
	"fmt"

	"github.com/san-kum/timedpid/internal/dynamo"
)

const (
	DefaultHeatGain    = 1.0
	DefaultHeatLoss    = 0.02
	DefaultCapacity    = 1.0
	DefaultAmbientTemp = 20.0
)

// Heater models a boiler whose temperature rises with applied power and
// relaxes towards ambient. Negative power is treated as zero: it cannot
// cool below the natural loss.
type Heater struct {
	Gain     float64
	Loss     float64
	Capacity float64
	Ambient  float64
}

func NewHeater() *Heater {
	return &Heater{
		Gain:     DefaultHeatGain,
		Loss:     DefaultHeatLoss,
		Capacity: DefaultCapacity,
		Ambient:  DefaultAmbientTemp,
	}
}

func (h *Heater) StateDim() int   { return 1 }
func (h *Heater) ControlDim() int { return 1 }

func (h *Heater) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	power := 0.0
	if len(u) > 0 && u[0] > 0 {
		power = u[0]
	}
	return dynamo.State{(h.Gain*power - h.Loss*(x[0]-h.Ambient)) / h.Capacity}
}

func (h *Heater) ProcessVariable(x dynamo.State) float64 {
	return x[0]
}

func (h *Heater) GetParams() map[string]float64 {
	return map[string]float64{
		"gain":     h.Gain,
		"loss":     h.Loss,
		"capacity": h.Capacity,
		"ambient":  h.Ambient,
	}
}

func (h *Heater) SetParam(name string, value float64) error {
	switch name {
	case "gain":
		h.Gain = value
	case "loss":
		h.Loss = value
	case "capacity":
		h.Capacity = value
	case "ambient":
		h.Ambient = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
