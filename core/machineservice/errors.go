package machineservice

import "errors"

var (
	// ErrInvalidIntervalValue is returned by SetInterval for a zero
	// duration: a zero-length ticker would busy-loop the scheduler.
	ErrInvalidIntervalValue = errors.New("machineservice: interval must be positive")
	// ErrUnknownRelayer is returned by relayer-addressed operations for an
	// address with no registered machine.
	ErrUnknownRelayer = errors.New("machineservice: unknown relayer address")
	// ErrAlreadyRunning is returned by Start when the scheduler's tick
	// loop is already active.
	ErrAlreadyRunning = errors.New("machineservice: already running")
)
