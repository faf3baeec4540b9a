package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("edit queue full")
	ErrClosed = errors.New("edit queue closed")
)
