package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned when a schedule string is outside the
	// supported grammar (see ParseSpec).
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrJobNotFound is returned by manual runs, pause and resume when no job
	// is registered under the given name.
	ErrJobNotFound = errors.New("job not found")
)
