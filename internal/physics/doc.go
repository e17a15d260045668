// Package physics provides the plants driven by the PID lab.
//
// Each plant implements [dynamo.Plant]: the differential equations of the
// process plus the state component a sensor would measure.
//
//   - [Heater]: first-order thermal process (water boiler)
//   - [SpringMass]: damped mass on a spring pushed by an external force
//   - [Motor]: armature-controlled DC motor, speed is measured
//
// All plants implement [dynamo.Configurable] for runtime parameter
// adjustment.
package physics
