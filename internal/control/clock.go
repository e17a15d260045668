package control

import "math"

// SimClock is a pid.Clock driven by simulated time in seconds.
type SimClock struct {
	now float64
}

func NewSimClock(start float64) *SimClock {
	return &SimClock{now: start}
}

func (c *SimClock) Set(t float64) { c.now = t }

func (c *SimClock) Now() float64 { return c.now }

// Micros truncates to 32 bits so the counter wraps like a hardware timer.
func (c *SimClock) Micros() uint32 {
	return uint32(int64(math.Round(c.now * 1e6)))
}
