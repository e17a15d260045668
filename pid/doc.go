// Package pid implements a proportional-integral-derivative controller
// with three ways of advancing time between commands:
//
//   - [Controller.Cmd]: implicit unit time step
//   - [Controller.CmdStep]: caller-supplied time step in seconds
//   - [Controller.CmdAutoStep]: time step measured from a [Clock]
//
// # Usage
//
//	c := pid.New(2.0, 0.5, 0.1)
//	c.SetCmdRange(-100, 100)
//	for {
//	    u := c.CmdAutoStep(setPoint, readSensor())
//	    drive(u)
//	}
//
// Only the returned command is clamped. The integral accumulator is never
// bounded, so call [Controller.Reset] whenever the loop is paused.
//
// A zero time step yields a non-finite derivative term which is returned
// as is. [Controller.CmdStepChecked] and [Controller.CmdAutoStepChecked]
// report that case as an error instead.
//
// # Thread Safety
//
// A Controller is NOT safe for concurrent use. Confine each instance to one
// goroutine or guard it with a mutex.
package pid
