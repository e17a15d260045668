package metrics

import (
	"math"

	"github.com/san-kum/timedpid/internal/dynamo"
)

// Overshoot is the largest excursion past the setpoint, in percent of the
// distance between the first measurement and the setpoint.
type Overshoot struct {
	start   float64
	started bool
	peak    float64
}

func NewOvershoot() *Overshoot { return &Overshoot{} }

func (m *Overshoot) Name() string { return "overshoot_pct" }

func (m *Overshoot) Observe(s dynamo.Sample) {
	if !m.started {
		m.start = s.Output
		m.started = true
	}
	span := s.Setpoint - m.start
	if span == 0 {
		return
	}
	if excess := (s.Output - s.Setpoint) / span; excess > m.peak {
		m.peak = excess
	}
}

func (m *Overshoot) Value() float64 { return m.peak * 100 }

func (m *Overshoot) Reset() {
	m.started = false
	m.peak = 0
}

// SettlingTime is the time from which the error stays within Band times the
// step size. It is -1 when the run ends outside the band.
type SettlingTime struct {
	Band float64

	start     float64
	started   bool
	inside    bool
	settledAt float64
}

func NewSettlingTime(band float64) *SettlingTime {
	return &SettlingTime{Band: band}
}

func (m *SettlingTime) Name() string { return "settling_time" }

func (m *SettlingTime) Observe(s dynamo.Sample) {
	if !m.started {
		m.start = s.Output
		m.started = true
	}

	tol := m.Band * math.Abs(s.Setpoint-m.start)
	if tol == 0 {
		tol = m.Band * math.Max(math.Abs(s.Setpoint), 1)
	}

	switch {
	case math.Abs(s.Error()) > tol:
		m.inside = false
	case !m.inside:
		m.inside = true
		m.settledAt = s.Time
	}
}

func (m *SettlingTime) Value() float64 {
	if !m.inside {
		return -1
	}
	return m.settledAt
}

func (m *SettlingTime) Reset() {
	m.started = false
	m.inside = false
	m.settledAt = 0
}
