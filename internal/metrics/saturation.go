package metrics

import (
	"math"

	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
)

const saturationTol = 1e-9

// Saturation is the fraction of commands sitting on either bound.
// Without a range it is always zero.
type Saturation struct {
	rng       *control.Range
	saturated int
	samples   int
}

func NewSaturation(rng *control.Range) *Saturation {
	return &Saturation{rng: rng}
}

func (m *Saturation) Name() string { return "saturation" }

func (m *Saturation) Observe(s dynamo.Sample) {
	m.samples++
	if m.rng == nil || len(s.Control) == 0 {
		return
	}
	u := s.Control[0]
	if math.Abs(u-m.rng.Min) <= saturationTol || math.Abs(u-m.rng.Max) <= saturationTol {
		m.saturated++
	}
}

func (m *Saturation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.saturated) / float64(m.samples)
}

func (m *Saturation) Reset() {
	m.saturated = 0
	m.samples = 0
}
