package control

import "github.com/san-kum/timedpid/internal/dynamo"

// None applies a constant command regardless of the plant state.
type None struct {
	dim   int
	value float64
}

func NewNone(dim int, value float64) *None {
	if dim < 1 {
		dim = 1
	}
	return &None{dim: dim, value: value}
}

func (n *None) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, n.dim)
	for i := range u {
		u[i] = n.value
	}
	return u
}
