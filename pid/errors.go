package pid

import "errors"

var (
	// ErrZeroTimeStep indicates a command was requested over a zero interval.
	ErrZeroTimeStep = errors.New("pid: zero time step")

	// ErrNegativeTimeStep indicates a command was requested over a negative interval.
	ErrNegativeTimeStep = errors.New("pid: negative time step")

	// ErrNonFinite indicates a NaN or infinite time step or command.
	ErrNonFinite = errors.New("pid: non-finite command")

	// ErrUnknownParam is returned by SetParam for names other than Kp, Ki and Kd.
	ErrUnknownParam = errors.New("pid: unknown parameter")
)
