package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrInvalidCron is returned when a job's cron expression cannot be parsed
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrDuplicateJob is returned when two jobs share a name
	ErrDuplicateJob = errors.New("duplicate job name")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrUnexpectedStatus is returned when the analytics service answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
