package pid

import "time"

// Clock is a monotonic microsecond counter. The value wraps at 2^32, so
// only differences between readings are meaningful.
type Clock interface {
	Micros() uint32
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) Micros() uint32 { return f() }

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock counting microseconds since its creation.
func NewMonotonicClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}
