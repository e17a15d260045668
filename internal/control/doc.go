// Package control adapts controllers to the [dynamo.Controller] interface:
//
//   - [Loop]: a [pid.Controller] driven in one of three timing modes
//   - [None]: open loop, a constant command
//
// # Usage
//
//	loop, _ := control.NewLoop(control.LoopConfig{
//	    Gains:    pid.Gains{Kp: 2, Ki: 0.5},
//	    Mode:     control.ModeAuto,
//	    Dt:       0.01,
//	    Setpoint: control.Constant(60),
//	}, plant.ProcessVariable)
//	sim := sim.New(plant, integ, loop)
//
// In [ModeAuto] the controller reads a [SimClock] that follows simulated
// time, so auto-step runs are reproducible.
//
// Loop implements [dynamo.Configurable] for live tuning.
package control
