package engine

import "errors"

var (
	// ErrRunInProgress is returned when another run holds a fresh lock for the date.
	ErrRunInProgress = errors.New("engine: settlement run already in progress")
	// ErrInvalidDate is returned for a zero or future settlement date.
	ErrInvalidDate = errors.New("engine: invalid settlement date")
	// ErrReceiverUnsettled is returned when a sponsor receiver has no settlement row
	// for the date yet. The route is retried by the next run.
	ErrReceiverUnsettled = errors.New("engine: receiver not settled")
)
