// Package dynamo provides the core primitives of the closed-loop lab.
//
// A run couples three parts:
//
//   - [Plant]: the controlled process, an ODE system dX/dt = f(X, u, t)
//     with one measured output (the process variable)
//   - [Integrator]: advances the plant state over one time step
//   - [Controller]: computes the actuator command from the plant state
//
// Every step is reported as a [Sample] to the registered [Metric] and
// [Observer] values.
//
// # Thread Safety
//
// Plants, integrators and controllers hold mutable scratch state and are
// NOT thread-safe. Build one set per concurrent run.
package dynamo
