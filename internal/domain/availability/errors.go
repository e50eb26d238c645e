package availability

import "errors"

var (
	// ErrInvalidDuration rejects zero or negative slot durations. Caller
	// error, never retried.
	ErrInvalidDuration = errors.New("slot duration must be positive")

	// ErrNotFound covers unknown locations and therapists.
	ErrNotFound = errors.New("not found")
)
