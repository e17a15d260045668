package integrators

import "github.com/san-kum/timedpid/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta stepper. The command is held
// constant over the step, as a zero-order hold on the actuator would.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))

	half := dt / 2
	copy(r.k[0], dyn.Derive(x, u, t))
	copy(r.k[1], dyn.Derive(axpy(r.scratch, x, half, r.k[0]), u, t+half))
	copy(r.k[2], dyn.Derive(axpy(r.scratch, x, half, r.k[1]), u, t+half))
	copy(r.k[3], dyn.Derive(axpy(r.scratch, x, dt, r.k[2]), u, t+dt))

	result := make(dynamo.State, len(x))
	dt6 := dt / 6
	for i := range x {
		result[i] = x[i] + dt6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return result
}

// axpy writes x + a*k into dst and returns it.
func axpy(dst, x dynamo.State, a float64, k dynamo.State) dynamo.State {
	for i := range x {
		dst[i] = x[i] + a*k[i]
	}
	return dst
}
