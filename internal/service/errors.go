package service

import "errors"

var (
	ErrInvalidDuration  = errors.New("duration_minutes must be positive")
	ErrInvalidLookahead = errors.New("lookahead_days must not be negative")
	ErrInvalidInterval  = errors.New("end must be after start")
	ErrNoWorkers        = errors.New("at least one worker is required")
	ErrWorkerNotFound   = errors.New("worker not found in organization")
	ErrOrgNotFound      = errors.New("organization not found")
	ErrHoldNotActive    = errors.New("hold is not active")

	// ErrNoOpenSlot is the resolver's "no open time" outcome. It is a normal
	// branch for callers, not a storage failure.
	ErrNoOpenSlot = errors.New("no open slot within lookahead window")
)
