package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepInProgress is returned when a sweep is requested while one is running
	ErrSweepInProgress = errors.New("reconciliation sweep already in progress")
)
