package control

// Schedule is a setpoint that changes once, at StepAt seconds.
type Schedule struct {
	Initial float64 `json:"initial" yaml:"initial"`
	Final   float64 `json:"final" yaml:"final"`
	StepAt  float64 `json:"step_at" yaml:"step_at"`
}

func Constant(v float64) Schedule {
	return Schedule{Initial: v, Final: v}
}

func Step(from, to, at float64) Schedule {
	return Schedule{Initial: from, Final: to, StepAt: at}
}

func (s Schedule) Value(t float64) float64 {
	if t < s.StepAt {
		return s.Initial
	}
	return s.Final
}
